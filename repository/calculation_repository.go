package repository

import (
	"sync"
	"time"

	"xirr-service/domain"
)

// CalculationRecord is one logged computation.
type CalculationRecord struct {
	MemberID   domain.MemberID
	Result     domain.XirrResult
	ComputedAt time.Time
}

type CalculationRepository interface {
	Save(id domain.MemberID, result domain.XirrResult) error
}

// CalculationRepositoryMemory keeps the most recent calculations in memory.
type CalculationRepositoryMemory struct {
	mu    sync.Mutex
	limit int
	data  []CalculationRecord
}

// NewCalculationRepositoryMemory creates a log holding at most limit records.
// A limit of zero or less keeps everything.
func NewCalculationRepositoryMemory(limit int) *CalculationRepositoryMemory {
	return &CalculationRepositoryMemory{
		limit: limit,
		data:  []CalculationRecord{},
	}
}

// Save appends the result, dropping the oldest record when full.
func (r *CalculationRepositoryMemory) Save(id domain.MemberID, result domain.XirrResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = append(r.data, CalculationRecord{
		MemberID:   id,
		Result:     result,
		ComputedAt: time.Now().UTC(),
	})
	if r.limit > 0 && len(r.data) > r.limit {
		r.data = r.data[len(r.data)-r.limit:]
	}
	return nil
}

// Recent returns a copy of the log, oldest first.
func (r *CalculationRepositoryMemory) Recent() []CalculationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CalculationRecord, len(r.data))
	copy(out, r.data)
	return out
}
