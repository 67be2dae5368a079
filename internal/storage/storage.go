package storage

import "liquidityCore/internal/model"

// Storage defines a sink for event records.
type Storage interface {
	PutEventBatch(records []model.EventRecord) error
}
