// Package store persists the dedup state across process restarts. Saves
// happen after every mutation, so implementations favor durability over
// throughput; persistence is best-effort redundancy, not a transaction log.
package store

import (
	"context"

	"github.com/reportwire/livewatch/pkg/domain"
)

// Store loads and saves the whole DedupState.
type Store interface {
	Load(ctx context.Context) (*domain.DedupState, error)
	Save(ctx context.Context, st *domain.DedupState) error
}
