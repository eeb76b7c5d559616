// Package state records processed documents and the balance carried between
// reports in a SQLite database.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ukaji3/cashreport-go/pkg/cashreport/report"

	_ "modernc.org/sqlite"
)

// Document statuses.
const (
	StatusReported = "reported"
	StatusEmpty    = "empty"
	StatusFailed   = "failed"
)

// Document is one processed input.
type Document struct {
	SHA256      string
	Name        string
	Status      string
	Summaries   int
	ProcessedAt time.Time
}

type Store struct {
	db      *sql.DB
	opening report.Carry
	now     func() time.Time
}

// Open opens (creating if needed) the database at dbPath and migrates it.
// opening is the carry returned until one has been saved.
func Open(dbPath string, opening report.Carry) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer; the runner records documents sequentially.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, opening: opening, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsProcessed reports whether a document with this content hash was recorded.
func (s *Store) IsProcessed(ctx context.Context, sha string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM processed_documents WHERE sha256 = ?`, sha).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query processed document: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records doc. Recording the same hash twice keeps the first row.
func (s *Store) MarkProcessed(ctx context.Context, doc Document) error {
	at := doc.ProcessedAt
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_documents (sha256, name, status, summaries, processed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(sha256) DO NOTHING`,
		doc.SHA256, doc.Name, doc.Status, doc.Summaries, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert processed document: %w", err)
	}
	return nil
}

// Documents lists processed documents, oldest first.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sha256, name, status, summaries, processed_at FROM processed_documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list processed documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc Document
			at  string
		)
		if err := rows.Scan(&doc.SHA256, &doc.Name, &doc.Status, &doc.Summaries, &at); err != nil {
			return nil, fmt.Errorf("scan processed document: %w", err)
		}
		doc.ProcessedAt, _ = time.Parse(time.RFC3339, at)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// LoadCarry returns the saved carry, or the opening carry if none was saved.
func (s *Store) LoadCarry(ctx context.Context) (report.Carry, error) {
	var vouchers, flow sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT vouchers, flow_base FROM carry WHERE id = 1`).Scan(&vouchers, &flow)
	if errors.Is(err, sql.ErrNoRows) {
		return s.opening, nil
	}
	if err != nil {
		return report.Carry{}, fmt.Errorf("load carry: %w", err)
	}
	return report.Carry{
		Vouchers: fromNull(vouchers),
		FlowBase: fromNull(flow),
	}, nil
}

// SaveCarry replaces the stored carry.
func (s *Store) SaveCarry(ctx context.Context, c report.Carry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO carry (id, vouchers, flow_base, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET vouchers = excluded.vouchers,
		   flow_base = excluded.flow_base, updated_at = excluded.updated_at`,
		toNull(c.Vouchers), toNull(c.FlowBase), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save carry: %w", err)
	}
	return nil
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
