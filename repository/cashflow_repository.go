package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"xirr-service/domain"
)

// ErrMemberNotFound is returned when a member has no cashflows at all.
var ErrMemberNotFound = errors.New("member not found")

// CashflowRepository is the data collaborator: it lists members and returns
// each member's installments ordered by date. Handles are opened once at
// start-up and closed at shutdown.
type CashflowRepository interface {
	MemberIDs(ctx context.Context) ([]domain.MemberID, error)
	Cashflows(ctx context.Context, id domain.MemberID) ([]domain.RawRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// SeedRow is one installment in a JSON seed file.
type SeedRow struct {
	MemberID domain.MemberID `json:"member_id"`
	Amount   json.Number     `json:"amount"`
	Date     string          `json:"date"`
}

// ReadSeed decodes a JSON array of installments. Amounts keep their textual
// form so the validator sees exactly what was written.
func ReadSeed(r io.Reader) ([]SeedRow, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rows []SeedRow
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return rows, nil
}

// ReadSeedFile is ReadSeed over a file path.
func ReadSeedFile(path string) ([]SeedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSeed(f)
}

// dateKey orders raw dates the way a store would; unparsable values sort last.
func dateKey(v any) string {
	switch d := v.(type) {
	case time.Time:
		return d.Format(time.DateOnly)
	case string:
		return d
	case []byte:
		return string(d)
	}
	return "\xff"
}

func sortByDate(records []domain.RawRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return dateKey(records[i].Date) < dateKey(records[j].Date)
	})
}
