package repository

import (
	"context"
	"fmt"
	"sync"

	"xirr-service/domain"
)

// CashflowRepositoryMemory is an in-memory implementation of CashflowRepository.
type CashflowRepositoryMemory struct {
	mu      sync.RWMutex
	order   []domain.MemberID
	records map[domain.MemberID][]domain.RawRecord
}

// NewCashflowRepositoryMemory creates an empty in-memory store.
func NewCashflowRepositoryMemory() *CashflowRepositoryMemory {
	return &CashflowRepositoryMemory{
		records: make(map[domain.MemberID][]domain.RawRecord),
	}
}

// Add appends raw installments for a member.
func (r *CashflowRepositoryMemory) Add(id domain.MemberID, records ...domain.RawRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		r.order = append(r.order, id)
	}
	r.records[id] = append(r.records[id], records...)
}

// Seed loads rows from a seed file into the store.
func (r *CashflowRepositoryMemory) Seed(rows []SeedRow) {
	for _, row := range rows {
		r.Add(row.MemberID, domain.RawRecord{Amount: row.Amount, Date: row.Date})
	}
}

// MemberIDs returns members in first-insertion order.
func (r *CashflowRepositoryMemory) MemberIDs(ctx context.Context) ([]domain.MemberID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.MemberID, len(r.order))
	copy(out, r.order)
	return out, nil
}

func (r *CashflowRepositoryMemory) Cashflows(ctx context.Context, id domain.MemberID) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	out := make([]domain.RawRecord, len(stored))
	copy(out, stored)
	sortByDate(out)
	return out, nil
}

func (r *CashflowRepositoryMemory) Ping(ctx context.Context) error { return nil }

func (r *CashflowRepositoryMemory) Close() error { return nil }
