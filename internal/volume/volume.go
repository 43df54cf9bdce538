// Package volume reports capacity of the file system holding a path.
package volume

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
)

// Volume summarizes a mounted file system
type Volume struct {
	Path       string
	TotalBytes uint64
	FreeBytes  uint64
	UsageLabel string // "63%", or "?" when unknown
}

// usageFunc is swapped in tests
var usageFunc = disk.Usage

// Fetch returns capacity information for the volume containing path.
// Lookup failures yield a zero Volume labelled "?" rather than an error.
func Fetch(path string) Volume {
	usage, err := usageFunc(path)
	if err != nil || usage == nil {
		return Volume{Path: path, UsageLabel: "?"}
	}
	return fromStat(path, usage.Total, usage.Free)
}

func fromStat(path string, total, free uint64) Volume {
	v := Volume{Path: path, TotalBytes: total, FreeBytes: free, UsageLabel: "?"}
	if total > 0 {
		used := total - min(free, total)
		percent := (float64(used)/float64(total))*100 + 0.5
		v.UsageLabel = fmt.Sprintf("%d%%", int(percent))
	}
	return v
}
