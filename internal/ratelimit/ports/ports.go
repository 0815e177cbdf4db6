// Package ports declares the storage interfaces behind the quota and tier
// service. Both stores have explicit lifecycle operations so the in-memory
// implementations can be swapped for a shared external counter store in
// multi-replica deployments.
package ports

import (
	"context"
	"time"

	"trustgraph/internal/ratelimit/models"
)

// KeyStore is the registry of API-key records. Put has map overwrite
// semantics; Get returns (nil, nil) for absent keys.
type KeyStore interface {
	Put(ctx context.Context, record *models.APIKeyRecord) error
	Get(ctx context.Context, key string) (*models.APIKeyRecord, error)
	Delete(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context) error
	Close() error
}

// WindowStore is the per-key usage ledger. Take runs the full fixed-window
// admission check atomically for one key: an absent or stale window restarts
// with zero tokens, a rejection leaves the window untouched, and an admission
// consumes one token. Atomicity per key is the store's responsibility so
// concurrent callers cannot exceed the limit.
type WindowStore interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (models.QuotaDecision, error)
	Reset(ctx context.Context) error
	Close() error
}
