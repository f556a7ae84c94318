package service

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"xirr-service/domain"
)

// Validate converts raw store rows into a date-ordered series and rejects
// sets that cannot have a finite rate. Checks run in a fixed order and the
// first failing one wins.
func Validate(raw []domain.RawRecord) (domain.CashflowSeries, error) {
	records := make([]domain.CashflowRecord, 0, len(raw))
	for i, r := range raw {
		amount, err := toAmount(r.Amount)
		if err != nil {
			return domain.CashflowSeries{}, domain.NewValidationError(
				domain.KindDataConversion, fmt.Sprintf("record %d: %v", i, err))
		}
		date, err := toDate(r.Date)
		if err != nil {
			return domain.CashflowSeries{}, domain.NewValidationError(
				domain.KindDataConversion, fmt.Sprintf("record %d: %v", i, err))
		}
		records = append(records, domain.CashflowRecord{Amount: amount, Date: date})
	}

	// El store ya entrega ordenado, pero no confiamos en eso.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	if len(records) < 2 {
		return domain.CashflowSeries{}, domain.NewValidationError(
			domain.KindInsufficientData, fmt.Sprintf("%d record(s)", len(records)))
	}

	if records[0].Date.Equal(records[len(records)-1].Date) {
		return domain.CashflowSeries{}, domain.NewValidationError(
			domain.KindDegenerateDates, records[0].Date.Format(DateLayout))
	}

	var hasNeg, hasPos bool
	for _, r := range records {
		if r.Amount < 0 {
			hasNeg = true
		}
		if r.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return domain.CashflowSeries{}, domain.NewValidationError(domain.KindNoSignVariation, "")
	}

	return domain.NewCashflowSeries(records), nil
}

func toAmount(v any) (float64, error) {
	var f float64
	switch a := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing amount")
	case float64:
		f = a
	case float32:
		f = float64(a)
	case int:
		f = float64(a)
	case int32:
		f = float64(a)
	case int64:
		f = float64(a)
	case decimal.Decimal:
		f = a.InexactFloat64()
	case json.Number:
		return parseAmount(string(a))
	case string:
		return parseAmount(a)
	case []byte:
		return parseAmount(string(a))
	default:
		return 0, fmt.Errorf("unsupported amount type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("amount %v is not finite", f)
	}
	return f, nil
}

func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return 0, fmt.Errorf("amount %q is out of range", s)
	}
	return f, nil
}

func toDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	case time.Time:
		if d.IsZero() {
			return time.Time{}, fmt.Errorf("zero date")
		}
		return calendarDate(d), nil
	case string:
		return parseDate(d)
	case []byte:
		return parseDate(string(d))
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

// calendarDate drops the clock and zone, keeping the date as written.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
