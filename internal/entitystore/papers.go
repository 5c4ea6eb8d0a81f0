package entitystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inkline-labs/marginalia/pkg/types"
)

// resolvePaper maps a selector to the paper's primary key (the S2 id).
// Returns ErrPaperNotFound when the selector matches no paper row.
func (s *Store) resolvePaper(ctx context.Context, q execer, sel types.PaperSelector) (string, error) {
	if err := sel.Validate(); err != nil {
		return "", err
	}

	var (
		query string
		arg   string
	)
	if sel.S2ID != "" {
		query = `SELECT s2_id FROM paper WHERE s2_id = ?`
		arg = sel.S2ID
	} else {
		query = `SELECT s2_id FROM paper WHERE arxiv_id = ?`
		arg = sel.ArxivID
	}

	var paperID string
	err := q.QueryRowContext(ctx, s.rebind(query), arg).Scan(&paperID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", sel, types.ErrPaperNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve paper %s: %w", sel, err)
	}
	return paperID, nil
}

// EnsurePaper registers a paper, seeding its version table at index 0.
// The S2 id is required (it is the primary key); the arXiv id is optional.
// Calling it again for a known paper is a no-op.
func (s *Store) EnsurePaper(ctx context.Context, s2ID, arxivID string) error {
	if s2ID == "" {
		return fmt.Errorf("ensure paper: s2 id is required")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM paper WHERE s2_id = ?`), s2ID).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check paper: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var arxiv any
	if arxivID != "" {
		arxiv = arxivID
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO paper (s2_id, arxiv_id) VALUES (?, ?)`), s2ID, arxiv); err != nil {
		return fmt.Errorf("insert paper: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO version (paper_id, idx) VALUES (?, ?)`), s2ID, 0); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("registered paper", "s2_id", s2ID, "arxiv_id", arxivID)
	return nil
}

// LatestVersion returns the highest version index recorded for the paper.
// A paper with no version rows reads as version 0.
func (s *Store) LatestVersion(ctx context.Context, sel types.PaperSelector) (int64, error) {
	paperID, err := s.resolvePaper(ctx, s.db, sel)
	if err != nil {
		return 0, err
	}
	return s.latestVersion(ctx, s.db, paperID)
}

func (s *Store) latestVersion(ctx context.Context, q execer, paperID string) (int64, error) {
	var latest sql.NullInt64
	err := q.QueryRowContext(ctx, s.rebind(`SELECT MAX(idx) FROM version WHERE paper_id = ?`), paperID).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("latest version for %s: %w", paperID, err)
	}
	if !latest.Valid {
		return 0, nil
	}
	return latest.Int64, nil
}

// BumpVersion records a new revision for the paper and returns its index.
// Existing entities stay pinned to their versions; new annotations written
// without an explicit version land on the new index.
func (s *Store) BumpVersion(ctx context.Context, sel types.PaperSelector) (int64, error) {
	paperID, err := s.resolvePaper(ctx, s.db, sel)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	latest, err := s.latestVersion(ctx, tx, paperID)
	if err != nil {
		return 0, err
	}
	next := latest + 1
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO version (paper_id, idx) VALUES (?, ?)`), paperID, next); err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("bumped paper version", "paper_id", paperID, "version", next)
	return next, nil
}
