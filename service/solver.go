package service

import (
	"math"

	"xirr-service/domain"
)

type derivativeFunc func(rate float64, series domain.CashflowSeries) (float64, error)

// Solve finds the rate that zeroes NPV for a validated series.
//
// It runs Newton-Raphson from InitialGuess using the analytic derivative.
// When the derivative is zero or not finite the step becomes a secant step
// through the previous estimate. Iteration stops when two successive
// estimates differ by less than Tolerance; after MaxIterations steps it
// gives up with ErrNoConvergence. A rate reaching -1 or below fails with
// ErrRateDomain and a non-finite objective with ErrOverflow. All three wrap
// ErrSolverDivergence. No partial rate is ever returned.
//
// Excel equivalent: XIRR
func Solve(series domain.CashflowSeries) (float64, error) {
	return solve(series, NPVDerivative)
}

func solve(series domain.CashflowSeries, derivative derivativeFunc) (float64, error) {
	x := InitialGuess
	fx, err := NPV(x, series)
	if err != nil {
		return 0, err
	}

	prevX, prevF := math.NaN(), math.NaN()
	for i := 0; i < MaxIterations; i++ {
		if fx == 0 {
			return x, nil
		}

		var next float64
		df, derr := derivative(x, series)
		if derr == nil && df != 0 {
			next = x - fx/df
		} else {
			// secante
			if math.IsNaN(prevX) {
				prevX = x * (1 + secantStep)
				if prevX >= 0 {
					prevX += secantStep
				} else {
					prevX -= secantStep
				}
				if prevF, err = NPV(prevX, series); err != nil {
					return 0, err
				}
			}
			if fx == prevF {
				return 0, ErrNoConvergence
			}
			next = x - fx*(x-prevX)/(fx-prevF)
		}

		if math.IsNaN(next) || math.IsInf(next, 0) {
			return 0, ErrOverflow
		}
		if next <= -1 {
			return 0, ErrRateDomain
		}
		if math.Abs(next-x) < Tolerance {
			return next, nil
		}

		prevX, prevF = x, fx
		x = next
		if fx, err = NPV(x, series); err != nil {
			return 0, err
		}
	}
	return 0, ErrNoConvergence
}
