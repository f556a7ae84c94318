package service

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"xirr-service/domain"
	"xirr-service/repository"
)

// FetchFunc loads the raw installments of one member.
type FetchFunc func(ctx context.Context, id domain.MemberID) ([]domain.RawRecord, error)

type XirrService struct {
	store   repository.CashflowRepository
	cache   repository.CacheRepository
	calcLog repository.CalculationRepository
	logger  *slog.Logger
	workers int
}

type Option func(*XirrService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *XirrService) { s.logger = logger }
}

// WithWorkers sets how many members of a batch are computed at once.
func WithWorkers(n int) Option {
	return func(s *XirrService) {
		if n < 1 {
			n = DefaultBatchWorkers
		}
		if n > MaxBatchWorkers {
			n = MaxBatchWorkers
		}
		s.workers = n
	}
}

// NewXirrService creates a XirrService over the given store. cache and
// calcLog may be nil.
func NewXirrService(
	store repository.CashflowRepository,
	cache repository.CacheRepository,
	calcLog repository.CalculationRepository,
	opts ...Option,
) *XirrService {
	s := &XirrService{
		store:   store,
		cache:   cache,
		calcLog: calcLog,
		logger:  slog.Default(),
		workers: DefaultBatchWorkers,
	}
	if s.cache == nil {
		s.cache = repository.NoCache{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute runs the validator and the solver on raw records. It has no side
// effects and always returns exactly one result variant.
func Compute(raw []domain.RawRecord) domain.XirrResult {
	series, err := Validate(raw)
	if err != nil {
		return invalidResult(err)
	}
	return solveResult(series)
}

// ComputeOne is Compute for a member, with result caching and the
// calculation log.
func (s *XirrService) ComputeOne(ctx context.Context, id domain.MemberID, raw []domain.RawRecord) domain.XirrResult {
	var result domain.XirrResult

	series, err := Validate(raw)
	if err != nil {
		result = invalidResult(err)
	} else {
		key := cacheKey(series)
		cached, ok := s.cached(key)
		if ok {
			result = cached
		} else {
			result = solveResult(series)
			s.storeCached(key, result)
		}
	}

	s.logger.Debug("xirr computed", "member_id", id, "status", result.Status, "result", result.String())
	s.record(id, result)
	return result
}

// ComputeAll computes every member in ids. A failure for one member only
// affects that member's entry; entries follow the order of ids no matter
// how many workers run.
func (s *XirrService) ComputeAll(ctx context.Context, ids []domain.MemberID, fetch FetchFunc) domain.BatchResult {
	batch := domain.BatchResult{
		RunID:   uuid.New(),
		Entries: make([]domain.BatchEntry, len(ids)),
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range ids {
		i, id := i, id
		batch.Entries[i].MemberID = id
		if err := ctx.Err(); err != nil {
			batch.Entries[i].Result = domain.Invalid(domain.KindFetchFailed, err.Error())
			continue
		}
		g.Go(func() error {
			batch.Entries[i].Result = s.computeMember(ctx, id, fetch)
			return nil
		})
	}
	_ = g.Wait()

	counts := batch.Counts()
	s.logger.Info("xirr batch computed",
		"run_id", batch.RunID,
		"members", len(ids),
		"solved", counts[domain.StatusSolved],
		"invalid", counts[domain.StatusInvalid],
		"unsolvable", counts[domain.StatusUnsolvable],
	)
	return batch
}

// CalculateMember loads one member from the store and computes it.
func (s *XirrService) CalculateMember(ctx context.Context, id domain.MemberID) domain.XirrResult {
	return s.computeMember(ctx, id, s.store.Cashflows)
}

// CalculateAll computes every member known to the store. It fails as a
// whole only when the member list itself cannot be read.
func (s *XirrService) CalculateAll(ctx context.Context) (domain.BatchResult, error) {
	ids, err := s.store.MemberIDs(ctx)
	if err != nil {
		return domain.BatchResult{}, fmt.Errorf("list members: %w", err)
	}
	return s.ComputeAll(ctx, ids, s.store.Cashflows), nil
}

// Members returns the distinct member ids in the store.
func (s *XirrService) Members(ctx context.Context) ([]domain.MemberID, error) {
	return s.store.MemberIDs(ctx)
}

func (s *XirrService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *XirrService) computeMember(ctx context.Context, id domain.MemberID, fetch FetchFunc) domain.XirrResult {
	raw, err := fetch(ctx, id)
	if err != nil {
		// Un miembro sin cuotas se trata como datos insuficientes.
		if !errors.Is(err, repository.ErrMemberNotFound) {
			s.logger.Warn("fetch cashflows failed", "member_id", id, "error", err)
			result := domain.Invalid(domain.KindFetchFailed, err.Error())
			s.record(id, result)
			return result
		}
		raw = nil
	}
	return s.ComputeOne(ctx, id, raw)
}

func (s *XirrService) record(id domain.MemberID, result domain.XirrResult) {
	if s.calcLog == nil {
		return
	}
	// Guardar el resultado (no crítico si falla)
	if err := s.calcLog.Save(id, result); err != nil {
		s.logger.Warn("failed to save xirr calculation", "member_id", id, "error", err)
	}
}

func (s *XirrService) cached(key string) (domain.XirrResult, bool) {
	raw, ok := s.cache.Get(key)
	if !ok {
		return domain.XirrResult{}, false
	}
	var result domain.XirrResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		s.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return domain.XirrResult{}, false
	}
	return result, true
}

func (s *XirrService) storeCached(key string, result domain.XirrResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to encode xirr result", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(key, string(payload)); err != nil {
		s.logger.Warn("failed to cache xirr result", "key", key, "error", err)
	}
}

func invalidResult(err error) domain.XirrResult {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return domain.Invalid(ve.Kind, ve.Detail)
	}
	return domain.Invalid(domain.KindDataConversion, err.Error())
}

func solveResult(series domain.CashflowSeries) domain.XirrResult {
	rate, err := Solve(series)
	if err != nil {
		return domain.Unsolvable(err.Error())
	}
	return domain.Solved(rate)
}

// cacheKey fingerprints a validated series: same cashflows, same key.
func cacheKey(series domain.CashflowSeries) string {
	d := xxhash.New()
	var buf [16]byte
	for i := 0; i < series.Len(); i++ {
		r := series.At(i)
		binary.LittleEndian.PutUint64(buf[:8], math.Float64bits(r.Amount))
		binary.LittleEndian.PutUint64(buf[8:], uint64(r.Date.Unix()))
		_, _ = d.Write(buf[:])
	}
	return cacheKeyPrefix + strconv.FormatUint(d.Sum64(), 16)
}
