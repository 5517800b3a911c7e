package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Коды ошибок PostgreSQL, которые репозитории обрабатывают явно.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Querier - общий интерфейс *sqlx.DB и *sqlx.Tx для запросов, выполняемых в обоих режимах.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// WithTransaction выполняет fn в транзакции: коммит при успехе, откат при ошибке или панике.
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// IsUniqueViolation сообщает, нарушено ли ограничение уникальности.
// Пустой constraint означает любое ограничение.
func IsUniqueViolation(err error, constraint string) bool {
	return isPQError(err, pgUniqueViolation, constraint)
}

// IsForeignKeyViolation сообщает, нарушен ли внешний ключ.
func IsForeignKeyViolation(err error) bool {
	return isPQError(err, pgForeignKeyViolation, "")
}

func isPQError(err error, code, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != code {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// Offset переводит номер страницы (с 1) в смещение.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
