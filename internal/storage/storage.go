// Package storage is the key-value persistence port backing client-side
// durable state (auth session, cart). Values cross the boundary as JSON.
package storage

import "context"

type Store interface {
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

const (
	KeyAuthSession = "auth_session"
	KeyCart        = "cart"
)
