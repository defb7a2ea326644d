package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const singletonFile = "resource.json"

// Filesystem хранит ресурсы деревом JSON-файлов: каталог на ресурс,
// resource.json для одиночных, {sanitized_key}.json для коллекций.
// Запись всегда сквозная; чтение опционально кэшируется в памяти,
// кэш сбрасывается по событиям file-watch.
type Filesystem struct {
	root         string
	disableCache bool

	mu      sync.RWMutex
	cache   map[string][]byte // path → raw JSON
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// FilesystemOptions configures the filesystem provider.
type FilesystemOptions struct {
	Root         string
	DisableCache bool
}

// NewFilesystem creates a provider rooted at opts.Root.
func NewFilesystem(opts FilesystemOptions) *Filesystem {
	return &Filesystem{
		root:         opts.Root,
		disableCache: opts.DisableCache,
		cache:        make(map[string][]byte),
	}
}

// Open creates the root directory and starts the cache invalidation watcher.
func (f *Filesystem) Open(ctx context.Context) error {
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return fmt.Errorf("creating storage root %s: %w", f.root, err)
	}
	if f.disableCache {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating storage watcher: %w", err)
	}
	if err := w.Add(f.root); err != nil {
		w.Close()
		return fmt.Errorf("watching storage root %s: %w", f.root, err)
	}
	// Каталоги ресурсов могут уже существовать — подписываемся на все.
	entries, err := os.ReadDir(f.root)
	if err != nil {
		w.Close()
		return fmt.Errorf("listing storage root %s: %w", f.root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(f.root, e.Name())); err != nil {
				slog.Warn("failed to watch resource directory", "dir", e.Name(), "error", err)
			}
		}
	}

	f.watcher = w
	f.done = make(chan struct{})
	go f.watchLoop()
	return nil
}

func (f *Filesystem) watchLoop() {
	for {
		select {
		case <-f.done:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if err := f.watcher.Add(ev.Name); err != nil {
						slog.Warn("failed to watch new resource directory", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			f.mu.Lock()
			delete(f.cache, ev.Name)
			f.mu.Unlock()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("storage watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (f *Filesystem) Close() error {
	if f.watcher != nil {
		close(f.done)
		return f.watcher.Close()
	}
	return nil
}

// sanitizeKey makes a collection key safe to use as a file name.
func sanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (f *Filesystem) path(name, key string) string {
	file := singletonFile
	if key != "" {
		file = sanitizeKey(key) + ".json"
	}
	return filepath.Join(f.root, name, file)
}

func (f *Filesystem) readFile(path string, out any) error {
	if !f.disableCache {
		f.mu.RLock()
		data, ok := f.cache[path]
		f.mu.RUnlock()
		if ok {
			return json.Unmarshal(data, out)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !f.disableCache {
		f.mu.Lock()
		f.cache[path] = data
		f.mu.Unlock()
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (f *Filesystem) writeFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if f.watcher != nil {
		if err := f.watcher.Add(dir); err != nil {
			slog.Debug("failed to watch resource directory", "dir", dir, "error", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if !f.disableCache {
		f.mu.Lock()
		f.cache[path] = data
		f.mu.Unlock()
	}
	return nil
}

func (f *Filesystem) Get(ctx context.Context, resource string, out any) error {
	return f.readFile(f.path(resource, ""), out)
}

func (f *Filesystem) Set(ctx context.Context, resource string, v any) error {
	return f.writeFile(f.path(resource, ""), v)
}

func (f *Filesystem) GetKeyed(ctx context.Context, collection, key string, out any) error {
	return f.readFile(f.path(collection, key), out)
}

func (f *Filesystem) SetKeyed(ctx context.Context, collection, key string, v any) error {
	return f.writeFile(f.path(collection, key), v)
}

func (f *Filesystem) DeleteKeyed(ctx context.Context, collection, key string) (bool, error) {
	path := f.path(collection, key)
	err := os.Remove(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("removing %s: %w", path, err)
	}
	f.mu.Lock()
	delete(f.cache, path)
	f.mu.Unlock()
	return true, nil
}

func (f *Filesystem) Exists(ctx context.Context, collection string) (bool, error) {
	entries, err := os.ReadDir(filepath.Join(f.root, collection))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("listing %s: %w", collection, err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			return true, nil
		}
	}
	return false, nil
}

func (f *Filesystem) ExistsKeyed(ctx context.Context, collection, key string) (bool, error) {
	_, err := os.Stat(f.path(collection, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking %s/%s: %w", collection, key, err)
	}
	return true, nil
}
