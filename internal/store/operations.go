package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Operation is one finished brew invocation.
type Operation struct {
	ID         int64
	Op         string
	Target     string
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	Detail     string
}

// Duration is how long the operation ran.
func (o *Operation) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// RecordOperation inserts op and sets its ID.
func (s *Store) RecordOperation(op *Operation) error {
	query := `
		INSERT INTO operations (op, target, started_at, finished_at, success, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query,
		op.Op,
		op.Target,
		op.StartedAt.UTC().Format(time.RFC3339Nano),
		op.FinishedAt.UTC().Format(time.RFC3339Nano),
		op.Success,
		op.Detail,
	)
	if err != nil {
		return wrapErr("record operation "+op.Op, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get operation ID: %w", err)
	}
	op.ID = id
	return nil
}

// ListOperations returns up to limit operations, newest first. A limit
// <= 0 returns all of them.
func (s *Store) ListOperations(limit int) ([]*Operation, error) {
	query := `
		SELECT id, op, target, started_at, finished_at, success, detail
		FROM operations
		ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapErr("list operations", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate operations", err)
	}
	return ops, nil
}

// LastOperation returns the newest operation of the given kind, or nil.
func (s *Store) LastOperation(kind string) (*Operation, error) {
	query := `
		SELECT id, op, target, started_at, finished_at, success, detail
		FROM operations
		WHERE op = ?
		ORDER BY id DESC
		LIMIT 1
	`
	op, err := scanOperation(s.db.QueryRow(query, kind))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return op, err
}

// PruneOperations deletes all but the newest keep operations.
func (s *Store) PruneOperations(keep int) (int64, error) {
	query := `
		DELETE FROM operations
		WHERE id NOT IN (SELECT id FROM operations ORDER BY id DESC LIMIT ?)
	`
	result, err := s.db.Exec(query, keep)
	if err != nil {
		return 0, wrapErr("prune operations", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned operations: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (*Operation, error) {
	var op Operation
	var target, detail sql.NullString
	var startedAt, finishedAt string

	err := row.Scan(&op.ID, &op.Op, &target, &startedAt, &finishedAt, &op.Success, &detail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, wrapErr("scan operation", err)
	}

	op.Target = target.String
	op.Detail = detail.String

	if op.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at for operation %d: %w", op.ID, err)
	}
	if op.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at for operation %d: %w", op.ID, err)
	}
	return &op, nil
}
