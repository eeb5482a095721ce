package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/database"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// ParseDSN parses a go-sql-driver DSN and forces the options the identity
// repository relies on: DATETIME columns scan into time.Time, and UPDATE
// reports matched rows rather than changed rows.
func ParseDSN(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// NewPool creates a new MariaDB connection pool.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	mysqlCfg, err := ParseDSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(mysqlCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, database.WrapStoreError("ping MariaDB", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// EnsureSchema creates the identities table when it does not exist yet.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS identities (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL,
			description TEXT NULL,
			embedding JSON NOT NULL,
			dim INT NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_identities_display_name (display_name, id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin
	`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return database.WrapStoreError("create identities table", err)
	}
	log.Printf("mariadb: identities table ready")
	return nil
}

// Open connects to MariaDB, ensures the schema exists and returns an identity
// repository enforcing dim. The caller owns the returned pool.
func Open(ctx context.Context, cfg *config.DatabaseConfig, dim int) (*Pool, *IdentityRepository, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, nil, errors.New("database URL is required")
	}

	pool, err := NewPool(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create MariaDB pool: %w", err)
	}

	if err := pool.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return pool, NewIdentityRepository(pool, dim), nil
}
