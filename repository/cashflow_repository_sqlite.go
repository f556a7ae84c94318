package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"xirr-service/domain"
)

// CashflowRepositorySQLite reads installments from a SQLite file.
type CashflowRepositorySQLite struct {
	db *sql.DB
}

// NewCashflowRepositorySQLite opens (or creates) the database at path.
func NewCashflowRepositorySQLite(ctx context.Context, path string) (*CashflowRepositorySQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite serializa escrituras; una sola conexión evita "database is locked".
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &CashflowRepositorySQLite{db: db}, nil
}

// EnsureSchema crea la tabla si no existe.
// installment_amount has NUMERIC affinity, so numeric text becomes a number
// and anything else is kept as text for the validator to reject.
func (r *CashflowRepositorySQLite) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS installments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			member_id INTEGER NOT NULL,
			installment_amount NUMERIC,
			installment_date TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS installments_member_date
			ON installments (member_id, installment_date);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores rows in a single transaction.
func (r *CashflowRepositorySQLite) Insert(ctx context.Context, rows []SeedRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO installments (member_id, installment_amount, installment_date) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, int64(row.MemberID), row.Amount.String(), row.Date); err != nil {
			return fmt.Errorf("insert row %d (member %d): %w", i, row.MemberID, err)
		}
	}
	return tx.Commit()
}

// SeedFromJSON carga un archivo JSON de cuotas a la base.
func (r *CashflowRepositorySQLite) SeedFromJSON(ctx context.Context, path string) error {
	rows, err := ReadSeedFile(path)
	if err != nil {
		return err
	}
	return r.Insert(ctx, rows)
}

func (r *CashflowRepositorySQLite) MemberIDs(ctx context.Context) ([]domain.MemberID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT member_id FROM installments ORDER BY member_id`)
	if err != nil {
		return nil, fmt.Errorf("query member ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.MemberID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.MemberID(id))
	}
	return ids, rows.Err()
}

// Cashflows scans amount and date into untyped values so the stored types
// reach the validator unchanged.
func (r *CashflowRepositorySQLite) Cashflows(ctx context.Context, id domain.MemberID) ([]domain.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT installment_amount, installment_date
		FROM installments
		WHERE member_id = ?
		ORDER BY installment_date, id`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query cashflows for member %d: %w", id, err)
	}
	defer rows.Close()

	var out []domain.RawRecord
	for rows.Next() {
		var amount, date any
		if err := rows.Scan(&amount, &date); err != nil {
			return nil, err
		}
		out = append(out, domain.RawRecord{Amount: amount, Date: date})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	return out, nil
}

func (r *CashflowRepositorySQLite) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *CashflowRepositorySQLite) Close() error {
	return r.db.Close()
}
