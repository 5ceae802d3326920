package cmd

import (
	"testing"

	"github.com/calvora/stepflow/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence_DefaultsToMemory(t *testing.T) {
	t.Parallel()

	for _, url := range []string{"", "memory://", "file:///tmp/data"} {
		p, err := NewPersistence(t.Context(), nil, url)
		require.NoError(t, err)
		assert.IsType(t, &memory.Persistence{}, p)
	}
}

func TestParseProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url      string
		expected string
	}{
		{"postgres://localhost:5432/stepflow", "postgres"},
		{"postgresql://localhost/stepflow", "postgresql"},
		{"memory://", "memory"},
		{"not-a-url", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseProvider(tt.url))
	}
}
