// Package entitystore is the paper entity repository: it reads entity,
// boundingbox, and entitydata rows scoped to one paper version, runs them
// through the codec to produce typed entities, and writes typed mutations
// back as coordinated sets of row deletes and inserts. The SQL executor is
// injected, so tests run against SQLite while deployments may point the
// same code at Postgres.
package entitystore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkline-labs/marginalia/pkg/types"
)

// Dialect selects the placeholder style of the backing database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store is the repository over an injected *sql.DB. All multi-statement
// writes run inside a single transaction, so a mid-sequence failure rolls
// back instead of leaving the entity half-updated.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// New creates a repository over db. A nil logger discards log output.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("entitystore: nil database handle")
	}
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("entitystore: %q: %w", dialect, types.ErrUnknownDialect)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, dialect: dialect, logger: logger}, nil
}

// InitSchema creates the annotation tables and indexes if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	s.logger.Info("initialized annotation schema", "dialect", string(s.dialect))
	return nil
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// nowRFC3339 formats the current UTC time the way entity rows store it.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// rebind rewrites ? placeholders into the dialect's native style. Queries in
// this package never contain a literal question mark, so a plain scan is
// enough.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "(?, ?, ...)" tuples joined by commas, for
// multi-row VALUES inserts.
func placeholders(rows, cols int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"
	tuples := make([]string, rows)
	for i := range tuples {
		tuples[i] = tuple
	}
	return strings.Join(tuples, ", ")
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertBoundingBoxes batch-inserts bounding boxes for one entity.
func (s *Store) insertBoundingBoxes(ctx context.Context, q execer, entityID, source string, boxes []types.BoundingBox) error {
	if len(boxes) == 0 {
		return nil
	}
	args := make([]any, 0, len(boxes)*8)
	for _, box := range boxes {
		boxSource := box.Source
		if boxSource == "" {
			boxSource = source
		}
		args = append(args, newUUID(), entityID, boxSource, box.Page, box.Left, box.Top, box.Width, box.Height)
	}
	query := `INSERT INTO boundingbox (id, entity_id, source, page, "left", "top", width, height) VALUES ` +
		placeholders(len(boxes), 8)
	if _, err := q.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("insert bounding boxes: %w", err)
	}
	return nil
}

// insertDataRows batch-inserts entitydata rows.
func (s *Store) insertDataRows(ctx context.Context, q execer, rows []types.EntityDataRow) error {
	if len(rows) == 0 {
		return nil
	}
	args := make([]any, 0, len(rows)*5)
	for _, row := range rows {
		args = append(args, row.EntityID, row.Source, string(row.Type), row.Key, row.Value)
	}
	query := `INSERT INTO entitydata (entity_id, source, type, key, value) VALUES ` +
		placeholders(len(rows), 5)
	if _, err := q.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("insert entity data: %w", err)
	}
	return nil
}
