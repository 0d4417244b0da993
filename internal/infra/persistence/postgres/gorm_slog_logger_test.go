package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"hrdesk/config"
	"hrdesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func newBufferedGormLogger(debug bool) (*gormSlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := &config.Config{}
	cfg.Env.Debug = debug

	return newGormSlogLogger(base, cfg), &buf
}

func sqlFn(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormSlogLogger_Trace(t *testing.T) {
	t.Run("record not found is silent", func(t *testing.T) {
		l, buf := newBufferedGormLogger(false)

		l.Trace(context.Background(), time.Now(), sqlFn("SELECT 1"), gorm.ErrRecordNotFound)

		assert.Empty(t, buf.String())
	})

	t.Run("failed query is logged", func(t *testing.T) {
		l, buf := newBufferedGormLogger(false)

		l.Trace(context.Background(), time.Now(), sqlFn("SELECT 1"), errors.New("boom"))

		assert.Contains(t, buf.String(), "Query failed")
		assert.Contains(t, buf.String(), "boom")
	})

	t.Run("slow query is a warning", func(t *testing.T) {
		l, buf := newBufferedGormLogger(false)

		l.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn("SELECT 1"), nil)

		assert.Contains(t, buf.String(), "level=WARN")
	})

	t.Run("fast query only in debug", func(t *testing.T) {
		quiet, quietBuf := newBufferedGormLogger(false)
		quiet.Trace(context.Background(), time.Now(), sqlFn("SELECT 1"), nil)
		assert.Empty(t, quietBuf.String())

		verbose, verboseBuf := newBufferedGormLogger(true)
		verbose.Trace(context.Background(), time.Now(), sqlFn("SELECT 1"), nil)
		assert.Contains(t, verboseBuf.String(), "SELECT 1")
	})
}

func TestGormSlogLogger_ParamsFilterDropsValues(t *testing.T) {
	l, _ := newBufferedGormLogger(true)

	sql, params := l.ParamsFilter(context.Background(), "SELECT * FROM accounts WHERE email = $1", "alice@example.com")

	assert.Equal(t, "SELECT * FROM accounts WHERE email = $1", sql)
	assert.Empty(t, params)
}
