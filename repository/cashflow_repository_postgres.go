package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"xirr-service/domain"
)

// CashflowRepositoryPostgres reads installments through a pgx pool.
// The pool is owned by the repository and closed with it.
type CashflowRepositoryPostgres struct {
	db *pgxpool.Pool
}

func NewCashflowRepositoryPostgres(pool *pgxpool.Pool) *CashflowRepositoryPostgres {
	return &CashflowRepositoryPostgres{db: pool}
}

// EnsureSchema crea la tabla si no existe.
func (r *CashflowRepositoryPostgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS installments (
			id BIGSERIAL PRIMARY KEY,
			member_id BIGINT NOT NULL,
			installment_amount NUMERIC NOT NULL,
			installment_date DATE NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS installments_member_date
			ON installments (member_id, installment_date);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert sends all rows in one batch inside a transaction.
func (r *CashflowRepositoryPostgres) Insert(ctx context.Context, rows []SeedRow) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO installments (member_id, installment_amount, installment_date)
			VALUES ($1, $2::numeric, $3::date)`,
			int64(row.MemberID), row.Amount.String(), row.Date)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert row %d (member %d): %w", i, rows[i].MemberID, err)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SeedFromJSON carga un archivo JSON de cuotas a la base.
func (r *CashflowRepositoryPostgres) SeedFromJSON(ctx context.Context, path string) error {
	rows, err := ReadSeedFile(path)
	if err != nil {
		return err
	}
	return r.Insert(ctx, rows)
}

func (r *CashflowRepositoryPostgres) MemberIDs(ctx context.Context) ([]domain.MemberID, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT member_id FROM installments ORDER BY member_id`)
	if err != nil {
		return nil, fmt.Errorf("query member ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.MemberID, error) {
		var id int64
		err := row.Scan(&id)
		return domain.MemberID(id), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan member ids: %w", err)
	}
	return ids, nil
}

// Cashflows returns amounts as text so the validator parses them exactly.
func (r *CashflowRepositoryPostgres) Cashflows(ctx context.Context, id domain.MemberID) ([]domain.RawRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT installment_amount::text, installment_date
		FROM installments
		WHERE member_id = $1
		ORDER BY installment_date, id`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query cashflows for member %d: %w", id, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RawRecord, error) {
		var amount string
		var date time.Time
		if err := row.Scan(&amount, &date); err != nil {
			return domain.RawRecord{}, err
		}
		return domain.RawRecord{Amount: amount, Date: date}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan cashflows for member %d: %w", id, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	return out, nil
}

func (r *CashflowRepositoryPostgres) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *CashflowRepositoryPostgres) Close() error {
	r.db.Close()
	return nil
}
