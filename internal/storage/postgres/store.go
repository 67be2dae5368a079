package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityCore/internal/model"
)

// Store provides Postgres persistence for runs, events, and metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertRun inserts or updates a scenario run summary.
func (s *Store) UpsertRun(ctx context.Context, run model.RunSummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sim_runs (
			run_id, scenario, token0, token1, fee, tick_spacing,
			steps, events, final_sqrt_price_x96, final_tick, final_liquidity,
			started_at, finished_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
		ON CONFLICT (run_id)
		DO UPDATE SET
			scenario = EXCLUDED.scenario,
			steps = EXCLUDED.steps,
			events = EXCLUDED.events,
			final_sqrt_price_x96 = EXCLUDED.final_sqrt_price_x96,
			final_tick = EXCLUDED.final_tick,
			final_liquidity = EXCLUDED.final_liquidity,
			finished_at = EXCLUDED.finished_at,
			updated_at = now()
	`,
		run.RunID,
		run.Scenario,
		run.PoolMeta.Token0,
		run.PoolMeta.Token1,
		run.PoolMeta.Fee,
		run.PoolMeta.TickSpacing,
		int64(run.Steps),
		int64(run.Events),
		run.FinalState.SqrtPriceX96,
		run.FinalState.Tick,
		run.FinalState.Liquidity,
		run.StartedAt,
		run.FinishedAt,
	)
	return err
}

// InsertEventBatch inserts event records, skipping duplicates.
func (s *Store) InsertEventBatch(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(`
			INSERT INTO pool_events (
				run_id, seq, step, ts, pool, event_name, payload, recorded_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (run_id, seq) DO NOTHING
		`,
			record.RunID,
			int64(record.Seq),
			int64(record.Step),
			int64(record.Timestamp),
			record.Pool,
			record.EventName,
			[]byte(record.Payload),
			record.RecordedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.WindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				run_id, pool, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, mint_count, burn_count, flash_count,
				volume0, volume1, fee0, fee1, fee_rate0, fee_rate1,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
			ON CONFLICT (run_id, pool, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				mint_count = EXCLUDED.mint_count,
				burn_count = EXCLUDED.burn_count,
				flash_count = EXCLUDED.flash_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				fee0 = EXCLUDED.fee0,
				fee1 = EXCLUDED.fee1,
				fee_rate0 = EXCLUDED.fee_rate0,
				fee_rate1 = EXCLUDED.fee_rate1,
				updated_at = now()
		`,
			m.RunID,
			m.Pool,
			int64(m.WindowSizeSecs),
			int64(m.WindowStart),
			int64(m.WindowEnd),
			int64(m.SwapCount),
			int64(m.MintCount),
			int64(m.BurnCount),
			int64(m.FlashCount),
			m.Volume0,
			m.Volume1,
			m.Fee0,
			m.Fee1,
			m.FeeRate0,
			m.FeeRate1,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last processed sequence for a run.
func (s *Store) LoadState(ctx context.Context, runID string) (uint64, bool, error) {
	if runID == "" {
		return 0, false, fmt.Errorf("run id required")
	}
	var seq uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_seq FROM sim_state WHERE run_id=$1`, runID)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return seq, true, nil
}

// SaveState upserts the last processed sequence for a run.
func (s *Store) SaveState(ctx context.Context, runID string, seq uint64) error {
	if runID == "" {
		return fmt.Errorf("run id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sim_state (run_id, last_processed_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (run_id) DO UPDATE
		SET last_processed_seq = EXCLUDED.last_processed_seq, updated_at = now()
	`, runID, seq)
	return err
}
