package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T, disableCache bool) *Filesystem {
	t.Helper()
	fs := NewFilesystem(FilesystemOptions{Root: t.TempDir(), DisableCache: disableCache})
	require.NoError(t, fs.Open(context.Background()))
	t.Cleanup(func() { fs.Close() })
	return fs
}

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFilesystemSingletonRoundTrip(t *testing.T) {
	fs := newTestFS(t, false)
	ctx := context.Background()

	var missing testDoc
	assert.ErrorIs(t, fs.Get(ctx, "login_settings", &missing), ErrNotFound)

	in := testDoc{Name: "settings", Count: 3}
	require.NoError(t, fs.Set(ctx, "login_settings", &in))

	var out testDoc
	require.NoError(t, fs.Get(ctx, "login_settings", &out))
	assert.Equal(t, in, out)

	// Запись сквозная: файл существует на диске сразу после Set.
	_, err := os.Stat(filepath.Join(fs.root, "login_settings", "resource.json"))
	require.NoError(t, err)
}

func TestFilesystemKeyedRoundTrip(t *testing.T) {
	fs := newTestFS(t, false)
	ctx := context.Background()

	in := testDoc{Name: "acct", Count: 1}
	require.NoError(t, fs.SetKeyed(ctx, "accounts", "OVR-ORG-123", &in))

	var out testDoc
	require.NoError(t, fs.GetKeyed(ctx, "accounts", "OVR-ORG-123", &out))
	assert.Equal(t, in, out)

	ok, err := fs.ExistsKeyed(ctx, "accounts", "OVR-ORG-123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fs.Exists(ctx, "accounts")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := fs.DeleteKeyed(ctx, "accounts", "OVR-ORG-123")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = fs.DeleteKeyed(ctx, "accounts", "OVR-ORG-123")
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.ErrorIs(t, fs.GetKeyed(ctx, "accounts", "OVR-ORG-123", &out), ErrNotFound)
}

func TestFilesystemSanitizesKeys(t *testing.T) {
	fs := newTestFS(t, true)
	ctx := context.Background()

	in := testDoc{Name: "doc"}
	require.NoError(t, fs.SetKeyed(ctx, "documents", "eula:en/../../evil", &in))

	// Ключ не должен дать выхода за пределы каталога коллекции.
	entries, err := os.ReadDir(filepath.Join(fs.root, "documents"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")

	var out testDoc
	require.NoError(t, fs.GetKeyed(ctx, "documents", "eula:en/../../evil", &out))
	assert.Equal(t, in, out)
}

func TestFilesystemCacheDisabledReadsDisk(t *testing.T) {
	fs := newTestFS(t, true)
	ctx := context.Background()

	require.NoError(t, fs.SetKeyed(ctx, "configs", "main_menu:main_menu", &testDoc{Count: 1}))

	// Правим файл мимо провайдера: без кэша чтение обязано видеть диск.
	path := fs.path("configs", "main_menu:main_menu")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"edited","count":9}`), 0o644))

	var out testDoc
	require.NoError(t, fs.GetKeyed(ctx, "configs", "main_menu:main_menu", &out))
	assert.Equal(t, testDoc{Name: "edited", Count: 9}, out)
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "OVR-ORG-123", sanitizeKey("OVR-ORG-123"))
	assert.Equal(t, "eula_en", sanitizeKey("eula:en"))
	assert.Equal(t, "a_b_c", sanitizeKey("a/b\\c"))
}

func TestMemoryProvider(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Open(ctx))

	require.NoError(t, m.SetKeyed(ctx, "accounts", "k", &testDoc{Count: 5}))
	var out testDoc
	require.NoError(t, m.GetKeyed(ctx, "accounts", "k", &out))
	assert.Equal(t, 5, out.Count)

	ok, err := m.Exists(ctx, "accounts")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := m.DeleteKeyed(ctx, "accounts", "k")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.ErrorIs(t, m.GetKeyed(ctx, "accounts", "k", &out), ErrNotFound)
}
