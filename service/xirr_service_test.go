package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"xirr-service/domain"
	"xirr-service/repository"
)

type MockCalculationRepository struct {
	mu         sync.Mutex
	SaveCalled int
	ForceError bool
}

func (m *MockCalculationRepository) Save(id domain.MemberID, result domain.XirrResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalled++
	if m.ForceError {
		return errors.New("save error")
	}
	return nil
}

type MockCache struct {
	*repository.MemoryCache
	SetError bool
	Gets     int
}

func (m *MockCache) Get(key string) (string, bool) {
	m.Gets++
	return m.MemoryCache.Get(key)
}

func (m *MockCache) Set(key, value string) error {
	if m.SetError {
		return errors.New("cache down")
	}
	return m.MemoryCache.Set(key, value)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validFlows() []domain.RawRecord {
	return raw(-1000.0, "2023-01-01", 600.0, "2023-07-01", 600.0, "2024-01-01")
}

func newTestService(store repository.CashflowRepository, opts ...Option) (*XirrService, *MockCalculationRepository) {
	calc := &MockCalculationRepository{}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewXirrService(store, repository.NewMemoryCache(), calc, opts...), calc
}

func TestCompute_EndToEnd(t *testing.T) {
	result := Compute(validFlows())

	if result.Status != domain.StatusSolved {
		t.Fatalf("expected solved, got %+v", result)
	}
	if result.Rate < 0.20 || result.Rate > 0.30 {
		t.Errorf("expected rate between 20%% and 30%%, got %v", result.Rate)
	}
	if result.Kind != domain.KindNone {
		t.Errorf("solved result must not carry an error kind")
	}
	if got := result.String(); got != "27.93%" {
		t.Errorf("expected 27.93%%, got %s", got)
	}
}

func TestCompute_Variants(t *testing.T) {
	tests := []struct {
		name   string
		raw    []domain.RawRecord
		status domain.Status
		kind   domain.ErrorKind
	}{
		{"insufficient", raw(-1.0, "2023-01-01"), domain.StatusInvalid, domain.KindInsufficientData},
		{"degenerate", raw(-1.0, "2023-01-01", 2.0, "2023-01-01"), domain.StatusInvalid, domain.KindDegenerateDates},
		{"no sign variation", raw(1.0, "2023-01-01", 2.0, "2024-01-01"), domain.StatusInvalid, domain.KindNoSignVariation},
		{"conversion", raw("abc", "2023-01-01", 2.0, "2024-01-01"), domain.StatusInvalid, domain.KindDataConversion},
		{"unsolvable", raw(100.0, "2023-01-01", -1.0, "2023-01-02"), domain.StatusUnsolvable, domain.KindSolverDivergence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compute(tt.raw)
			if result.Status != tt.status || result.Kind != tt.kind {
				t.Errorf("expected %s/%s, got %s/%s", tt.status, tt.kind, result.Status, result.Kind)
			}
			if result.Rate != 0 {
				t.Errorf("failed result must not carry a rate, got %v", result.Rate)
			}
		})
	}
}

func TestComputeOne_Idempotent(t *testing.T) {
	svc, calc := newTestService(repository.NewCashflowRepositoryMemory())
	ctx := context.Background()

	first := svc.ComputeOne(ctx, 1, validFlows())
	second := svc.ComputeOne(ctx, 1, validFlows())

	if first != second {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
	if first != Compute(validFlows()) {
		t.Errorf("cached result differs from a fresh computation")
	}
	if calc.SaveCalled != 2 {
		t.Errorf("expected 2 saves, got %d", calc.SaveCalled)
	}
}

func TestComputeOne_UsesCache(t *testing.T) {
	cache := &MockCache{MemoryCache: repository.NewMemoryCache()}
	svc := NewXirrService(repository.NewCashflowRepositoryMemory(), cache, nil, WithLogger(quietLogger()))
	ctx := context.Background()

	svc.ComputeOne(ctx, 1, validFlows())
	if cache.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", cache.Len())
	}

	// mismo flujo, otro miembro: misma clave
	svc.ComputeOne(ctx, 2, validFlows())
	if cache.Len() != 1 {
		t.Errorf("expected cache key to depend only on cashflows, got %d entries", cache.Len())
	}

	// los rechazos del validador no pasan por la caché
	gets := cache.Gets
	svc.ComputeOne(ctx, 3, raw(1.0, "2023-01-01"))
	if cache.Gets != gets {
		t.Errorf("invalid input should not touch the cache")
	}
}

func TestComputeOne_SideEffectFailuresAreNotFatal(t *testing.T) {
	cache := &MockCache{MemoryCache: repository.NewMemoryCache(), SetError: true}
	calc := &MockCalculationRepository{ForceError: true}
	svc := NewXirrService(repository.NewCashflowRepositoryMemory(), cache, calc, WithLogger(quietLogger()))

	result := svc.ComputeOne(context.Background(), 1, validFlows())
	if !result.IsSolved() {
		t.Fatalf("expected solved despite cache and log failures, got %+v", result)
	}
	if calc.SaveCalled != 1 {
		t.Errorf("expected Save to be attempted")
	}
}

func TestComputeOne_CorruptCacheEntry(t *testing.T) {
	cache := repository.NewMemoryCache()
	svc := NewXirrService(repository.NewCashflowRepositoryMemory(), cache, nil, WithLogger(quietLogger()))

	series, err := Validate(validFlows())
	if err != nil {
		t.Fatal(err)
	}
	_ = cache.Set(cacheKey(series), "{not json")

	result := svc.ComputeOne(context.Background(), 1, validFlows())
	if !result.IsSolved() {
		t.Errorf("expected recomputation on unreadable cache entry, got %+v", result)
	}
}

func TestComputeAll_IsolatesFailures(t *testing.T) {
	store := repository.NewCashflowRepositoryMemory()
	store.Add(1, validFlows()...)
	store.Add(2, raw("not-a-number", "2023-01-01", 600.0, "2024-01-01")...)
	store.Add(3, raw(-100.0, "2023-01-01", 110.0, "2024-01-01")...)

	svc, _ := newTestService(store)
	batch := svc.ComputeAll(context.Background(), []domain.MemberID{1, 2, 3}, store.Cashflows)

	if len(batch.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(batch.Entries))
	}
	for i, want := range []domain.MemberID{1, 2, 3} {
		if batch.Entries[i].MemberID != want {
			t.Errorf("entry %d: expected member %d, got %d", i, want, batch.Entries[i].MemberID)
		}
	}

	r1, _ := batch.Get(1)
	r2, _ := batch.Get(2)
	r3, _ := batch.Get(3)
	if r1 != Compute(validFlows()) {
		t.Errorf("member 1 affected by batch: %+v", r1)
	}
	if r2.Status != domain.StatusInvalid || r2.Kind != domain.KindDataConversion {
		t.Errorf("expected conversion error for member 2, got %+v", r2)
	}
	if !r3.IsSolved() || math.Abs(r3.Rate-0.10) > 1e-6 {
		t.Errorf("expected 10%% for member 3, got %+v", r3)
	}
}

func TestComputeAll_FetchErrors(t *testing.T) {
	store := repository.NewCashflowRepositoryMemory()
	store.Add(1, validFlows()...)

	fetch := func(ctx context.Context, id domain.MemberID) ([]domain.RawRecord, error) {
		if id == 2 {
			return nil, errors.New("connection reset")
		}
		return store.Cashflows(ctx, id)
	}

	svc, _ := newTestService(store)
	batch := svc.ComputeAll(context.Background(), []domain.MemberID{1, 2, 4}, fetch)

	if r, _ := batch.Get(1); !r.IsSolved() {
		t.Errorf("expected member 1 solved, got %+v", r)
	}
	if r, _ := batch.Get(2); r.Kind != domain.KindFetchFailed {
		t.Errorf("expected fetch failure for member 2, got %+v", r)
	}
	// sin cuotas equivale a datos insuficientes
	if r, _ := batch.Get(4); r.Kind != domain.KindInsufficientData {
		t.Errorf("expected insufficient data for unknown member 4, got %+v", r)
	}
}

func TestComputeAll_ParallelKeepsOrder(t *testing.T) {
	store := repository.NewCashflowRepositoryMemory()
	var ids []domain.MemberID
	for i := 1; i <= 40; i++ {
		id := domain.MemberID(i)
		ids = append(ids, id)
		if i%3 == 0 {
			store.Add(id, raw(float64(i), "2023-01-01")...)
			continue
		}
		store.Add(id, raw(-100.0, "2023-01-01", 100.0+float64(i), "2024-01-01")...)
	}

	sequential, _ := newTestService(store)
	parallel, _ := newTestService(store, WithWorkers(8))

	want := sequential.ComputeAll(context.Background(), ids, store.Cashflows)
	got := parallel.ComputeAll(context.Background(), ids, store.Cashflows)

	if len(got.Entries) != len(want.Entries) {
		t.Fatalf("expected %d entries, got %d", len(want.Entries), len(got.Entries))
	}
	for i := range want.Entries {
		if got.Entries[i] != want.Entries[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want.Entries[i], got.Entries[i])
		}
	}
	if got.RunID == want.RunID {
		t.Errorf("expected distinct run ids")
	}
}

func TestComputeAll_CanceledContext(t *testing.T) {
	store := repository.NewCashflowRepositoryMemory()
	store.Add(1, validFlows()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc, _ := newTestService(store)
	batch := svc.ComputeAll(ctx, []domain.MemberID{1, 2}, store.Cashflows)

	if len(batch.Entries) != 2 {
		t.Fatalf("expected every member to get an entry, got %d", len(batch.Entries))
	}
	for _, e := range batch.Entries {
		if e.Result.Kind != domain.KindFetchFailed {
			t.Errorf("member %d: expected fetch failure after cancel, got %+v", e.MemberID, e.Result)
		}
	}
}

type unreachableStore struct {
	*repository.CashflowRepositoryMemory
}

func (unreachableStore) MemberIDs(context.Context) ([]domain.MemberID, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestCalculateAll(t *testing.T) {
	store := repository.NewCashflowRepositoryMemory()
	store.Add(5, validFlows()...)
	store.Add(6, raw(1.0, "2023-01-01", 1.0, "2024-01-01")...)

	svc, _ := newTestService(store)
	batch, err := svc.CalculateAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Entries) != 2 || batch.Entries[0].MemberID != 5 {
		t.Errorf("unexpected entries %+v", batch.Entries)
	}

	down, _ := newTestService(unreachableStore{store})
	if _, err := down.CalculateAll(context.Background()); err == nil {
		t.Errorf("expected error when the store cannot list members")
	}
}

func TestCalculateMember_SamePipelineAsBatch(t *testing.T) {
	store := repository.NewCashflowRepositoryMemory()
	store.Add(9, raw("-1000", "2023-01-01", "600", "2023-07-01", "600", "2024-01-01")...)

	svc, _ := newTestService(store)
	single := svc.CalculateMember(context.Background(), 9)
	batch, err := svc.CalculateAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fromBatch, ok := batch.Get(9)
	if !ok || fromBatch != single {
		t.Errorf("expected batch result %+v to match single result %+v", fromBatch, single)
	}
}

func TestWithWorkers_Bounds(t *testing.T) {
	svc, _ := newTestService(nil, WithWorkers(0))
	if svc.workers != DefaultBatchWorkers {
		t.Errorf("expected default workers, got %d", svc.workers)
	}
	svc, _ = newTestService(nil, WithWorkers(1000))
	if svc.workers != MaxBatchWorkers {
		t.Errorf("expected workers capped at %d, got %d", MaxBatchWorkers, svc.workers)
	}
}
