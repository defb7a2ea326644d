package storage

import (
	"context"
	"errors"
)

// Имена ресурсов и коллекций, которыми оперирует relay.
const (
	ResourceAccessControls = "access_controls"
	ResourceChannelInfo    = "channel_info"
	ResourceLoginSettings  = "login_settings"

	CollectionAccounts  = "accounts"
	CollectionConfigs   = "configs"
	CollectionDocuments = "documents"
)

// ErrNotFound возвращается, когда ресурса или ключа нет в хранилище.
var ErrNotFound = errors.New("resource not found")

// Storage — контракт хранилища: именованные одиночные ресурсы и коллекции
// ключ→значение, значения — JSON-документы. Реализации обязаны быть
// потокобезопасными; ядро не различает провайдеров.
type Storage interface {
	// Open sets up the backend. Called once, blocking, before first use.
	Open(ctx context.Context) error
	Close() error

	// Get reads a single-valued resource into out. ErrNotFound when absent.
	Get(ctx context.Context, resource string, out any) error
	// Set writes a single-valued resource through to the backend.
	Set(ctx context.Context, resource string, v any) error

	// GetKeyed reads one collection entry into out. ErrNotFound when absent.
	GetKeyed(ctx context.Context, collection, key string, out any) error
	// SetKeyed writes one collection entry through to the backend.
	SetKeyed(ctx context.Context, collection, key string, v any) error
	// DeleteKeyed removes one collection entry, reporting whether it existed.
	DeleteKeyed(ctx context.Context, collection, key string) (bool, error)
	// Exists reports whether the collection holds any entry.
	Exists(ctx context.Context, collection string) (bool, error)
	// ExistsKeyed reports whether the collection holds the key.
	ExistsKeyed(ctx context.Context, collection, key string) (bool, error)
}
