package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/conectacordoba/marketplace-backend/internal/logger"
)

// PoolConfig задаёт параметры пула соединений.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewPostgres создаёт подключение к PostgreSQL с заданным DSN.
// Соединение открывается при старте процесса и закрывается вызывающим при остановке.
func NewPostgres(ctx context.Context, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	if pool.MaxOpenConns <= 0 {
		pool.MaxOpenConns = 50
	}
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = 10
	}
	if pool.ConnMaxLifetime <= 0 {
		pool.ConnMaxLifetime = 5 * time.Minute
	}

	conn.SetMaxOpenConns(pool.MaxOpenConns)
	conn.SetMaxIdleConns(pool.MaxIdleConns)
	conn.SetConnMaxLifetime(pool.ConnMaxLifetime)

	return conn, nil
}

// RunMigrations применяет up-миграции из каталога migrationsDir.
// Мигратор работает через отдельное соединение: его Close не должен закрыть основной пул.
func RunMigrations(dsn, migrationsDir string) error {
	migrationDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("postgres: не удалось открыть соединение для миграций: %w", err)
	}
	defer migrationDB.Close()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres: не удалось создать драйвер миграций: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("postgres: не удалось создать мигратор: %w", err)
	}
	defer migrator.Close()

	from, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("postgres: не удалось получить версию схемы: %w", err)
	}
	if dirty {
		return fmt.Errorf("postgres: схема в состоянии dirty на версии %d", from)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: не удалось выполнить миграции: %w", err)
	}

	to, _, _ := migrator.Version()
	logger.Component("db").WithFields(logrus.Fields{
		"from_version": from,
		"to_version":   to,
	}).Info("миграции применены")

	return nil
}
