package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newBufferedZerolog(level LogLevel) (Interface, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	zl := zerolog.New(buf)
	return NewZerologLogger(zl, Config{LogLevel: level}), buf
}

func TestZerologLoggerLevels(t *testing.T) {
	l, buf := newBufferedZerolog(Warn)
	ctx := context.Background()

	l.Info(ctx, "ignored")
	assert.Empty(t, buf.String())

	l.Warn(ctx, "watch out")
	assert.Contains(t, buf.String(), `"message":"watch out"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)

	buf.Reset()
	l.Error(ctx, "broken: %v", "pipe")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestZerologLoggerTrace(t *testing.T) {
	l, buf := newBufferedZerolog(Info)
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT * FROM member", 5 }

	l.Trace(ctx, time.Now(), fc, nil)
	assert.Contains(t, buf.String(), `"sql":"SELECT * FROM member"`)
	assert.Contains(t, buf.String(), `"rows":5`)

	buf.Reset()
	l.Trace(ctx, time.Now(), fc, errors.New("locked"))
	assert.Contains(t, buf.String(), `"error":"locked"`)

	buf.Reset()
	silent := l.LogMode(Silent)
	silent.Trace(ctx, time.Now(), fc, nil)
	assert.Empty(t, buf.String())
}

func TestZerologLoggerIgnoresNotFound(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewZerologLogger(zerolog.New(buf), Config{
		LogLevel:                  Warn,
		IgnoreRecordNotFoundError: true,
	})
	fc := func() (string, int64) { return "SELECT * FROM member WHERE id = 9", 0 }

	l.Trace(context.Background(), time.Now(), fc, ErrRecordNotFound)
	assert.Empty(t, buf.String())
}

func TestZerologLoggerParamsFilter(t *testing.T) {
	l := NewZerologLogger(zerolog.New(&bytes.Buffer{}), Config{ParameterizedQueries: true})
	pf, ok := l.(ParamsFilterer)
	assert.True(t, ok)

	sql, params := pf.ParamsFilter(context.Background(), "SELECT ?", 1)
	assert.Equal(t, "SELECT ?", sql)
	assert.Nil(t, params)
}
