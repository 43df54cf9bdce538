package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageBar(t *testing.T) {
	tests := []struct {
		name   string
		used   uint64
		total  uint64
		width  int
		filled int
	}{
		{"half", 50, 100, 10, 5},
		{"empty", 0, 100, 10, 0},
		{"full", 100, 100, 10, 10},
		{"overfull clamps", 300, 100, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := UsageBar(tt.used, tt.total, tt.width)
			assert.Equal(t, tt.filled, strings.Count(bar, "█"))
			assert.Equal(t, tt.width-tt.filled, strings.Count(bar, "░"))
		})
	}

	assert.Empty(t, UsageBar(1, 0, 10))
	assert.Empty(t, UsageBar(1, 10, 0))
}
