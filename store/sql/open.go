package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-issuer-agent/core"
	"github.com/goliatone/go-issuer-agent/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool                { return c.debug }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return defaultPingTimeout }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-issuer-agent" }

type OpenOption func(*openOptions)

type openOptions struct {
	debug   bool
	migrate bool
}

func WithDebug(debug bool) OpenOption {
	return func(o *openOptions) {
		o.debug = debug
	}
}

// WithoutMigrations skips applying the embedded ledger schema.
func WithoutMigrations() OpenOption {
	return func(o *openOptions) {
		o.migrate = false
	}
}

// Open connects to the ledger database and applies the embedded migrations for
// its dialect. Drivers "sqlite3"/"sqlite" use the sqlite dialect; anything else
// is treated as postgres.
func Open(ctx context.Context, cfg core.DatabaseConfig, opts ...OpenOption) (*persistence.Client, error) {
	options := openOptions{migrate: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, core.ConfigurationError("database dsn is required", nil)
	}
	dialectName := migrations.DialectFor(cfg.Driver)
	driverName, dialect := driverFor(dialectName)

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, core.ConfigurationError("open database", err)
	}
	if dialectName == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{
		driver: driverName,
		server: dsn,
		debug:  options.debug,
	}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, core.ConfigurationError("new persistence client", err)
	}
	if !options.migrate {
		return client, nil
	}
	if err := Migrate(ctx, client, dialectName); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Migrate registers the embedded migrations for dialect and applies them.
func Migrate(ctx context.Context, client *persistence.Client, dialect string) error {
	if client == nil {
		return fmt.Errorf("sqlstore: persistence client is required")
	}
	_, err := migrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithValidationTargets(dialect))
	if err != nil {
		return fmt.Errorf("sqlstore: register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func driverFor(dialect string) (string, schema.Dialect) {
	if dialect == migrations.DialectSQLite {
		return "sqlite3", sqlitedialect.New()
	}
	return "postgres", pgdialect.New()
}
