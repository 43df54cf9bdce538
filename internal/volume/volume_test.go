package volume

import (
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
)

func TestFromStat(t *testing.T) {
	tests := []struct {
		name  string
		total uint64
		free  uint64
		label string
	}{
		{"half used", 1000, 500, "50%"},
		{"rounds", 1000, 333, "67%"},
		{"empty disk", 1000, 1000, "0%"},
		{"unknown total", 0, 0, "?"},
		{"free exceeds total", 100, 200, "0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := fromStat("/", tt.total, tt.free)
			assert.Equal(t, tt.label, v.UsageLabel)
			assert.Equal(t, tt.total, v.TotalBytes)
		})
	}
}

func TestFetchFailureIsUnknown(t *testing.T) {
	orig := usageFunc
	t.Cleanup(func() { usageFunc = orig })

	usageFunc = func(string) (*disk.UsageStat, error) {
		return nil, errors.New("no such mount")
	}

	v := Fetch("/nowhere")
	assert.Equal(t, "?", v.UsageLabel)
	assert.Zero(t, v.TotalBytes)
}

func TestFetchUsesUsageStat(t *testing.T) {
	orig := usageFunc
	t.Cleanup(func() { usageFunc = orig })

	usageFunc = func(path string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Path: path, Total: 200, Free: 50}, nil
	}

	v := Fetch("/home")
	assert.Equal(t, "75%", v.UsageLabel)
	assert.Equal(t, uint64(50), v.FreeBytes)
}
