package model

// RunSummary stores the outcome of one scenario run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Scenario   string    `json:"scenario"`
	PoolMeta   PoolMeta  `json:"pool_meta"`
	Steps      uint64    `json:"steps"`
	Events     uint64    `json:"events"`
	FinalState PoolSlot0 `json:"final_state"`
	StartedAt  string    `json:"started_at"`
	FinishedAt string    `json:"finished_at"`
}
