package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSolved     Status = "solved"
	StatusInvalid    Status = "invalid"
	StatusUnsolvable Status = "unsolvable"
)

// XirrResult holds exactly one outcome: a rate, or a reason there is none.
type XirrResult struct {
	Status Status    `json:"status"`
	Rate   float64   `json:"rate,omitempty"`
	Kind   ErrorKind `json:"kind,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

func Solved(rate float64) XirrResult {
	return XirrResult{Status: StatusSolved, Rate: rate}
}

func Invalid(kind ErrorKind, detail string) XirrResult {
	return XirrResult{Status: StatusInvalid, Kind: kind, Detail: detail}
}

func Unsolvable(detail string) XirrResult {
	return XirrResult{Status: StatusUnsolvable, Kind: KindSolverDivergence, Detail: detail}
}

func (r XirrResult) IsSolved() bool { return r.Status == StatusSolved }

// Percent returns the rate as a percentage. It is zero unless solved.
func (r XirrResult) Percent() Percent {
	if !r.IsSolved() {
		return 0
	}
	return Percent(r.Rate * 100)
}

// Reason is the message for a failed result, empty when solved.
func (r XirrResult) Reason() string {
	if r.IsSolved() {
		return ""
	}
	return r.Kind.Reason(r.Detail)
}

func (r XirrResult) String() string {
	if r.IsSolved() {
		return r.Percent().String()
	}
	return r.Reason()
}

// Percent is a rate already multiplied by 100.
type Percent float64

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

// BatchEntry pairs a member with its result.
type BatchEntry struct {
	MemberID MemberID   `json:"member_id"`
	Result   XirrResult `json:"result"`
}

// BatchResult keeps one entry per requested member in request order.
type BatchResult struct {
	RunID   uuid.UUID    `json:"run_id"`
	Entries []BatchEntry `json:"entries"`
}

// Get returns the first entry recorded for id.
func (b BatchResult) Get(id MemberID) (XirrResult, bool) {
	for _, e := range b.Entries {
		if e.MemberID == id {
			return e.Result, true
		}
	}
	return XirrResult{}, false
}

// Counts reports how many entries ended in each status.
func (b BatchResult) Counts() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, e := range b.Entries {
		counts[e.Result.Status]++
	}
	return counts
}
