package logger

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mockLogLevel int8 = 0

func TestGetReturnsSameInstance(t *testing.T) {
	l1 := Get(mockLogLevel)
	l2 := Get(mockLogLevel)
	require.NotNil(t, l1)
	assert.Same(t, l1, l2)
	assert.Same(t, l1, Setup(Options{Level: -1}))
}

func TestGetReturnsNoopWhenGlobalNil(t *testing.T) {
	orig := globalLogrLogger
	globalLogrLogger = nil
	defer func() { globalLogrLogger = orig }()

	assert.Same(t, &defaultNoopLogger, Get(mockLogLevel))
	assert.Same(t, &defaultNoopLogger, GetGlobalLogger())
}

func TestWithLogger(t *testing.T) {
	ctx := context.Background()
	lgr := Get(mockLogLevel)

	withLgr := WithLogger(ctx, lgr)
	assert.Same(t, lgr, FromContext(withLgr))
	assert.Equal(t, withLgr, WithLogger(withLgr, lgr), "same logger keeps the context")

	other := logr.Discard()
	replaced := WithLogger(withLgr, &other)
	assert.Same(t, &other, FromContext(replaced))
}

func TestFromContextFallbacks(t *testing.T) {
	global := Get(mockLogLevel)
	assert.Same(t, global, FromContext(context.Background()))

	orig := globalLogrLogger
	globalLogrLogger = nil
	defer func() { globalLogrLogger = orig }()
	assert.Same(t, &defaultNoopLogger, FromContext(context.Background()))
}

func TestSyncWithoutLogger(t *testing.T) {
	orig := globalZapLogger
	globalZapLogger = nil
	defer func() { globalZapLogger = orig }()
	assert.NotPanics(t, Sync)
}

func TestIsIgnorableSyncError(t *testing.T) {
	assert.True(t, isIgnorableSyncError(syscall.ENOTTY))
	assert.True(t, isIgnorableSyncError(errors.New("sync /dev/stderr: The handle is invalid.")))
	assert.False(t, isIgnorableSyncError(errors.New("disk full")))
}

func TestWithValues(t *testing.T) {
	lgr := GetNoopLogger()
	next := WithValues(lgr, FormatKey, "json")
	require.NotNil(t, next)
	assert.NotSame(t, lgr, next)
}
