package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCliParams(t *testing.T) {
	got := NewCliParams()
	want := &Run{
		Tree: TreeSettings{
			MaxDepth:        DefaultMaxDepth,
			AutoExpandLimit: DefaultAutoExpandLimit,
		},
		ExitOnError: true,
	}
	assert.Equal(t, want, got)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   TreeSettings
		want TreeSettings
	}{
		{
			name: "zero values get defaults",
			in:   TreeSettings{},
			want: TreeSettings{MaxDepth: DefaultMaxDepth, AutoExpandLimit: DefaultAutoExpandLimit},
		},
		{
			name: "explicit values kept",
			in:   TreeSettings{MaxDepth: 3, AutoExpandLimit: 7, ExpandAll: true},
			want: TreeSettings{MaxDepth: 3, AutoExpandLimit: 7, ExpandAll: true},
		},
		{
			name: "negative depth reset",
			in:   TreeSettings{MaxDepth: -1, AutoExpandLimit: 5},
			want: TreeSettings{MaxDepth: DefaultMaxDepth, AutoExpandLimit: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Run{Tree: tt.in}
			r.Normalize()
			assert.Equal(t, tt.want, r.Tree)
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, ok := FromContext(ctx)
	assert.False(t, ok)

	s := &Run{NoColor: true}
	ctx = IntoContext(ctx, s)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Same(t, s, FromContextOrDefault(ctx))
}

func TestFromContextOrDefault(t *testing.T) {
	got := FromContextOrDefault(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, DefaultMaxDepth, got.Tree.MaxDepth)
}
