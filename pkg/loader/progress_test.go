package loader

import (
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReaderCoalesces(t *testing.T) {
	input := strings.Repeat("x", 4096)
	var calls []int64
	pr := NewProgressReader(context.Background(), iotest.OneByteReader(strings.NewReader(input)), func(n int64) {
		calls = append(calls, n)
	})

	data, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Len(t, data, 4096)
	assert.EqualValues(t, 4096, pr.BytesRead())

	require.NotEmpty(t, calls)
	// 4096 one-byte reads finish well inside a few intervals, so almost all
	// of them must have been coalesced away.
	assert.Less(t, len(calls), 100)
	assert.EqualValues(t, 4096, calls[len(calls)-1], "final report carries the total")
}

func TestProgressReaderNilCallback(t *testing.T) {
	pr := NewProgressReader(context.Background(), strings.NewReader("abc"), nil)
	data, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestProgressReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr := NewProgressReader(ctx, strings.NewReader("abc"), nil)
	_, err := io.ReadAll(pr)
	require.ErrorIs(t, err, context.Canceled)
}
