package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn records statements and answers every query with no rows.
type stubConn struct {
	mu       sync.Mutex
	execs    []string
	args     [][]driver.NamedValue
	failPing bool
}

var stubCount atomic.Int64

func newStubDB(conn *stubConn) *sql.DB {
	name := fmt.Sprintf("stubpg%d", stubCount.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return errors.New("connection refused")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	c.args = append(c.args, args)
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	return emptyRows{}, nil
}

type emptyRows struct{}

func (emptyRows) Columns() []string         { return []string{"id"} }
func (emptyRows) Close() error              { return nil }
func (emptyRows) Next([]driver.Value) error { return io.EOF }

func TestNewPostgresRunStore_CreatesTable(t *testing.T) {
	conn := &stubConn{}
	var gotDriver string
	restore := OverrideSQLOpen(func(driverName, _ string) (*sql.DB, error) {
		gotDriver = driverName
		return newStubDB(conn), nil
	})
	defer restore()

	s, err := NewPostgresRunStore(context.Background(), "postgres://localhost/osteon")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "pgx", gotDriver)
	require.NotEmpty(t, conn.execs)
	assert.Contains(t, conn.execs[0], "CREATE TABLE IF NOT EXISTS runs")
	assert.Contains(t, conn.execs[0], "JSONB")
}

func TestNewPostgresRunStore_Errors(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
			return nil, errors.New("bad dsn")
		})
		defer restore()
		_, err := NewPostgresRunStore(context.Background(), "postgres://x")
		assert.ErrorContains(t, err, "open postgres")
	})

	t.Run("ping", func(t *testing.T) {
		restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
			return newStubDB(&stubConn{failPing: true}), nil
		})
		defer restore()
		_, err := NewPostgresRunStore(context.Background(), "postgres://x")
		assert.ErrorContains(t, err, "ping postgres")
	})
}

func TestPostgresRunStore_SaveRunUpserts(t *testing.T) {
	conn := &stubConn{}
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return newStubDB(conn), nil })
	defer restore()

	s, err := NewPostgresRunStore(context.Background(), "postgres://x")
	require.NoError(t, err)
	defer s.Close()

	run := sampleRun("pg", time.Time{})
	run.Snapshots = nil
	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)

	last := conn.execs[len(conn.execs)-1]
	assert.True(t, strings.HasPrefix(strings.TrimSpace(last), "INSERT INTO runs"))
	assert.Contains(t, last, "ON CONFLICT (id) DO UPDATE")

	args := conn.args[len(conn.args)-1]
	require.Len(t, args, 10)
	assert.Equal(t, run.ID, args[0].Value)
	assert.Equal(t, []byte("[]"), args[9].Value, "nil snapshots are stored as an empty array")
}

func TestPostgresRunStore_GetRunNotFound(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return newStubDB(&stubConn{}), nil })
	defer restore()

	s, err := NewPostgresRunStore(context.Background(), "postgres://x")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestPostgresRunStore_Integration runs the store contract against a real
// database when OSTEON_TEST_DATABASE_URL is set.
func TestPostgresRunStore_Integration(t *testing.T) {
	dsn := os.Getenv("OSTEON_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OSTEON_TEST_DATABASE_URL not set")
	}
	s, err := NewPostgresRunStore(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.DB().ExecContext(context.Background(), `TRUNCATE runs`)
	require.NoError(t, err)
	testRunStore(t, s)
}
