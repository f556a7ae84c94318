package domain

import "time"

// MemberID identifies the owner of a cashflow history.
type MemberID int64

// RawRecord is an installment row exactly as a store returns it.
// Amount and Date are converted by the validator, never trusted as-is.
type RawRecord struct {
	Amount any
	Date   any
}

// CashflowRecord is a converted installment: signed amount on a calendar date.
type CashflowRecord struct {
	Amount float64
	Date   time.Time
}

// CashflowSeries is an ordered, read-only sequence of cashflows.
// Only the validator builds one.
type CashflowSeries struct {
	records []CashflowRecord
}

// NewCashflowSeries copies records into a series. Callers must pass them
// sorted by date.
func NewCashflowSeries(records []CashflowRecord) CashflowSeries {
	cp := make([]CashflowRecord, len(records))
	copy(cp, records)
	return CashflowSeries{records: cp}
}

func (s CashflowSeries) Len() int { return len(s.records) }

func (s CashflowSeries) At(i int) CashflowRecord { return s.records[i] }

// First is the reference record all others are discounted to.
func (s CashflowSeries) First() CashflowRecord { return s.records[0] }

func (s CashflowSeries) Amounts() []float64 {
	out := make([]float64, len(s.records))
	for i, r := range s.records {
		out[i] = r.Amount
	}
	return out
}

func (s CashflowSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.records))
	for i, r := range s.records {
		out[i] = r.Date
	}
	return out
}
