package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"xirr-service/domain"
)

var (
	// ErrSolverDivergence is matched by every solver failure.
	ErrSolverDivergence = errors.New("xirr solver diverged")

	ErrRateDomain    = fmt.Errorf("%w: discount base 1+rate is not positive", ErrSolverDivergence)
	ErrOverflow      = fmt.Errorf("%w: numeric overflow", ErrSolverDivergence)
	ErrNoConvergence = fmt.Errorf("%w: did not converge", ErrSolverDivergence)
)

// yearFraction is the Actual/365 time between from and to.
func yearFraction(from, to time.Time) float64 {
	days := math.Round(to.Sub(from).Hours() / 24)
	return days / DaysPerYear
}

// NPV discounts every cashflow to the first date of the series.
//
// Excel equivalent: XNPV
func NPV(rate float64, series domain.CashflowSeries) (float64, error) {
	if rate <= -1 || math.IsNaN(rate) {
		return 0, ErrRateDomain
	}
	d0 := series.First().Date
	npv := 0.0
	for i := 0; i < series.Len(); i++ {
		r := series.At(i)
		t := yearFraction(d0, r.Date)
		npv += r.Amount / math.Pow(1+rate, t)
	}
	if math.IsInf(npv, 0) || math.IsNaN(npv) {
		return 0, ErrOverflow
	}
	return npv, nil
}

// NPVDerivative is d(NPV)/d(rate).
func NPVDerivative(rate float64, series domain.CashflowSeries) (float64, error) {
	if rate <= -1 || math.IsNaN(rate) {
		return 0, ErrRateDomain
	}
	d0 := series.First().Date
	dnpv := 0.0
	for i := 0; i < series.Len(); i++ {
		r := series.At(i)
		t := yearFraction(d0, r.Date)
		dnpv -= r.Amount * t / math.Pow(1+rate, t+1)
	}
	if math.IsInf(dnpv, 0) || math.IsNaN(dnpv) {
		return 0, ErrOverflow
	}
	return dnpv, nil
}
