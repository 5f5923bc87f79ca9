package source

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/forgev2/forge-admin/internal/config"
	forgeerrors "github.com/forgev2/forge-admin/internal/errors"
	"github.com/forgev2/forge-admin/pkg/types"
)

func TestConnector_TableData(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "email", "state"}).
		AddRow(int64(1), "a@x.io", []byte(`{"blocks":{}}`)).
		AddRow(int64(2), nil, nil)
	mock.ExpectQuery("^" + regexp.QuoteMeta(`SELECT * FROM "user"`) + "$").WillReturnRows(rows)

	c, err := NewWithDB(db, DriverPostgres)
	require.NoError(t, err)

	table, err := c.TableData(context.Background(), "user")
	require.NoError(t, err)
	require.Equal(t, "user", table.Name)
	require.Equal(t, []string{"id", "email", "state"}, table.Columns)
	require.Equal(t, []types.Row{
		{"id": int64(1), "email": "a@x.io", "state": `{"blocks":{}}`},
		{"id": int64(2), "email": nil, "state": nil},
	}, table.Rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnector_TableDataEmpty(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `templates`")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, err := NewWithDB(db, DriverMySQL)
	require.NoError(t, err)

	table, err := c.TableData(context.Background(), "templates")
	require.NoError(t, err)
	require.NotNil(t, table.Rows)
	require.Empty(t, table.Rows)
}

func TestConnector_TableDataQueryError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "missing"`)).
		WillReturnError(errors.New("relation does not exist"))

	c, err := NewWithDB(db, DriverSQLite)
	require.NoError(t, err)

	_, err = c.TableData(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, forgeerrors.ErrCategorySource, forgeerrors.GetCategory(err))
	require.Equal(t, forgeerrors.CodeQueryFailed, forgeerrors.GetCode(err))
}

func TestConnector_EmptyTableName(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)

	c, err := NewWithDB(db, DriverPostgres)
	require.NoError(t, err)

	_, err = c.TableData(context.Background(), " ")
	require.Equal(t, forgeerrors.CodeUnknownTable, forgeerrors.GetCode(err))
}

func TestNewWithDB_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)

	_, err = NewWithDB(db, "oracle")
	require.Equal(t, forgeerrors.CodeInvalidRequest, forgeerrors.GetCode(err))
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tt := []struct {
		driver string
		name   string
		want   string
	}{
		{DriverPostgres, "user", `"user"`},
		{DriverPostgres, "public.user_stats", `"public"."user_stats"`},
		{DriverPostgres, `we"ird`, `"we""ird"`},
		{DriverMySQL, "user", "`user`"},
		{DriverMySQL, "we`ird", "`we``ird`"},
		{DriverSQLite, "workflow", `"workflow"`},
	}
	for _, tc := range tt {
		require.Equal(t, tc.want, QuoteIdent(tc.driver, tc.name), tc.name)
	}
}

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "source.db")
	seed, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	_, err = seed.Exec(`CREATE TABLE subscription (id TEXT, plan TEXT, seats INTEGER)`)
	require.NoError(t, err)
	_, err = seed.Exec(`INSERT INTO subscription VALUES ('s1', 'pro', 1), ('s2', 'team', 5)`)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	c, err := Open(context.Background(), config.SourceConfig{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	defer c.Close()

	table, err := c.TableData(context.Background(), "subscription")
	require.NoError(t, err)
	require.Equal(t, []string{"id", "plan", "seats"}, table.Columns)
	require.Len(t, table.Rows, 2)
	require.Equal(t, "team", table.Rows[1]["plan"])
	require.Equal(t, int64(5), table.Rows[1]["seats"])
}
