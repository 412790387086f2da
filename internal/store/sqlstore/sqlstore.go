// Package sqlstore is an sdk.Store over a single key/value table. Keys are
// stored hex encoded and values base64 encoded so the same schema works on
// sqlite and postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"presence_dao/internal/dbx"
	"presence_dao/internal/store/sqlstore/migrations"
	"presence_dao/sdk"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

type dialect struct {
	goose  string
	get    string
	upsert string
	delete string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		goose:  "sqlite3",
		get:    `SELECT v FROM kv WHERE k = ?`,
		upsert: `INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = excluded.v`,
		delete: `DELETE FROM kv WHERE k = ?`,
	},
	DriverPostgres: {
		goose:  "postgres",
		get:    `SELECT v FROM kv WHERE k = $1`,
		upsert: `INSERT INTO kv (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = excluded.v`,
		delete: `DELETE FROM kv WHERE k = $1`,
	},
	DriverPgx: {
		goose:  "pgx",
		get:    `SELECT v FROM kv WHERE k = $1`,
		upsert: `INSERT INTO kv (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = excluded.v`,
		delete: `DELETE FROM kv WHERE k = $1`,
	},
}

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

type Store struct {
	db      *sql.DB
	driver  string
	dialect dialect
	logger  *zap.Logger
}

// New wraps an open handle. It does not run migrations.
func New(db *sql.DB, driver string, logger *zap.Logger) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, driver: driver, dialect: d, logger: logger}, nil
}

// Open connects, migrates the schema and returns a ready store.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	if _, ok := dialects[driver]; !ok {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if driver == DriverSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	s, err := New(db, driver, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// RunMigrations applies the embedded goose migrations.
func (s *Store) RunMigrations(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(s.dialect.goose); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return err
	}
	s.logger.Debug("migrations applied", zap.String("driver", s.driver))
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.dialect.get, encodeKey(key)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %x: %w", key, err)
	}
	v, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode value of %x: %w", key, err)
	}
	out := string(v)
	return &out, nil
}

// Apply writes the batch in one SQL transaction.
func (s *Store) Apply(ctx context.Context, batch *sdk.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, op := range batch.Ops {
			var err error
			if op.Value == nil {
				_, err = tx.ExecContext(ctx, s.dialect.delete, encodeKey(op.Key))
			} else {
				_, err = tx.ExecContext(ctx, s.dialect.upsert, encodeKey(op.Key), base64.StdEncoding.EncodeToString([]byte(*op.Value)))
			}
			if err != nil {
				return fmt.Errorf("write %x: %w", op.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("batch rolled back", zap.Int("ops", batch.Len()), zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeKey(key string) string {
	return hex.EncodeToString([]byte(key))
}
