package service

// Parámetros fijos del solver. No dependen de los datos, así el resultado
// es reproducible entre llamadas.
const (
	// InitialGuess is the starting rate (10% per annum).
	InitialGuess = 0.10
	// Tolerance stops iteration once two successive estimates differ by less than this.
	Tolerance = 1e-8
	// MaxIterations caps the number of Newton/secant steps.
	MaxIterations = 50

	// DaysPerYear is the Actual/365 denominator.
	DaysPerYear = 365.0

	// DateLayout is the accepted textual date format.
	DateLayout = "2006-01-02"

	// secantStep perturbs the first point when a secant step is needed.
	secantStep = 1e-4

	// DefaultBatchWorkers processes a batch sequentially.
	DefaultBatchWorkers = 1
	// MaxBatchWorkers bounds parallel computations within a batch.
	MaxBatchWorkers = 64

	cacheKeyPrefix = "xirr:"
)
