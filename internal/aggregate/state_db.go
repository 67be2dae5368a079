package aggregate

import (
	"context"

	"liquidityCore/internal/storage/postgres"
)

// DBStateStore stores state in the sim_state table.
type DBStateStore struct {
	Store *postgres.Store
	RunID string
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.RunID)
}

func (s *DBStateStore) Save(ctx context.Context, seq uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.RunID, seq)
}
