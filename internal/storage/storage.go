package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/interpreter-booking/shared/postgresql"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict
const uniqueViolation = "23505"

// Storage is the PostgreSQL repository for jobs, assignments and users
type Storage struct {
	pg     *postgresql.Client
	db     *sqlx.DB
	logger *slog.Logger
}

func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		pg:     pg,
		db:     pg.GetDB(),
		logger: logger,
	}
}

// Migrate creates the schema when it does not exist yet
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.pg.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.logger.Info("Database schema applied")
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
