// Package source reads whole tables from the operational database that the
// snapshot backend mirrors.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/forgev2/forge-admin/internal/config"
	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/pkg/types"
)

// Supported drivers, as named in configuration.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Table is the full content of one source table.
type Table struct {
	Name string
	// Columns holds the column names in database order.
	Columns []string
	Rows    []types.Row
}

// Reader is the read side the snapshot refresher depends on.
type Reader interface {
	TableData(ctx context.Context, table string) (*Table, error)
}

// Connector reads tables through database/sql with sqlx row mapping.
type Connector struct {
	db           *sqlx.DB
	driver       string
	queryTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the connector logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// WithQueryTimeout bounds every table read.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Connector) { c.queryTimeout = d }
}

// Open connects to the configured source and pings it.
func Open(ctx context.Context, cfg config.SourceConfig, opts ...Option) (*Connector, error) {
	driverName, err := sqlDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, forgeerrors.NewSourceError(forgeerrors.CodeConnectFailed, "failed to open source database", err)
	}

	c := newConnector(db, cfg.Driver, append([]Option{WithQueryTimeout(cfg.QueryTimeout)}, opts...)...)
	if err := c.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	c.logger.Info("source connected", zap.String("driver", cfg.Driver))
	return c, nil
}

// NewWithDB wraps an existing connection. driver is one of the Driver constants.
func NewWithDB(db *sql.DB, driver string, opts ...Option) (*Connector, error) {
	driverName, err := sqlDriverName(driver)
	if err != nil {
		return nil, err
	}
	return newConnector(sqlx.NewDb(db, driverName), driver, opts...), nil
}

func newConnector(db *sqlx.DB, driver string, opts ...Option) *Connector {
	c := &Connector{db: db, driver: driver, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping verifies the connection.
func (c *Connector) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return forgeerrors.NewSourceError(forgeerrors.CodeConnectFailed, "failed to ping source database", err)
	}
	return nil
}

// Close closes the underlying pool.
func (c *Connector) Close() error {
	return c.db.Close()
}

// TableData returns every row of table. Byte values are returned as strings
// so JSON columns and numerics survive snapshot encoding as text.
func (c *Connector) TableData(ctx context.Context, table string) (*Table, error) {
	if strings.TrimSpace(table) == "" {
		return nil, forgeerrors.NewValidationError(forgeerrors.CodeUnknownTable, "table name is empty")
	}

	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	query := "SELECT * FROM " + QuoteIdent(c.driver, table)

	rows, err := c.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, queryError(table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, queryError(table, err)
	}

	out := &Table{Name: table, Columns: columns, Rows: []types.Row{}}
	for rows.Next() {
		raw := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(raw); err != nil {
			return nil, queryError(table, err)
		}
		out.Rows = append(out.Rows, normalize(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(table, err)
	}

	c.logger.Debug("table read",
		zap.String("table", table),
		zap.Int("rows", len(out.Rows)),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

// QuoteIdent quotes a possibly schema-qualified identifier for driver.
func QuoteIdent(driver, name string) string {
	q := `"`
	if driver == DriverMySQL {
		q = "`"
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

func normalize(raw map[string]interface{}) types.Row {
	row := make(types.Row, len(raw))
	for k, v := range raw {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
			continue
		}
		row[k] = v
	}
	return row
}

func queryError(table string, err error) error {
	return forgeerrors.NewSourceError(forgeerrors.CodeQueryFailed, fmt.Sprintf("failed to read table %s", table), err).
		WithDetails(map[string]interface{}{"table": table})
}

func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "postgres", nil
	case DriverMySQL:
		return "mysql", nil
	case DriverSQLite:
		return "sqlite3", nil
	default:
		return "", forgeerrors.NewValidationError(forgeerrors.CodeInvalidRequest, fmt.Sprintf("unsupported source driver: %s", driver))
	}
}
