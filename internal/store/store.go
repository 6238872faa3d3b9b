// Package store implements the match store (C2): transactional MySQL
// persistence for tournaments, participants, stations, and the match
// graph. Grounded on internal/repositories/{match,tournament,participant}
// _repository.go and repositories/container.go for the query shape and
// the BeginTx pattern, generalized from single-entity CRUD to the bracket
// graph's bulk-create-then-patch-prereqs lifecycle.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"tournamentlive/internal/apperrors"
	"tournamentlive/internal/models"
)

// Store wraps a MySQL connection pool with the §4.2 match-store operations.
type Store struct {
	db *sql.DB
}

// New creates a Store over an already-connected pool (see
// internal/database.Connections.MySQL).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func newID() string {
	return uuid.NewString()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic, mirroring repositories.Container.BeginTx.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Transient("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return apperrors.Fatal(fmt.Sprintf("rollback failed after %v", err), rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Transient("commit transaction", err)
	}
	return nil
}
