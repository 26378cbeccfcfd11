package drip

import "context"

// Store is a durable key-value map. Get returns ErrNotFound for missing keys;
// Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	// Keys returns the stored keys starting with prefix in sorted order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Notifier broadcasts that something in the store changed. It carries no
// payload and must not block.
type Notifier interface {
	Notify()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func()

// Notify calls f.
func (f NotifierFunc) Notify() { f() }
