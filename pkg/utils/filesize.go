package utils

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
	TB = 1024 * GB
)

// binaryUnits maps every accepted unit spelling to its IEC form. du reports
// in binary multiples, so "K", "KB" and "KiB" all mean 1024 bytes.
var binaryUnits = map[string]string{
	"":    "B",
	"B":   "B",
	"K":   "KiB",
	"KB":  "KiB",
	"KIB": "KiB",
	"M":   "MiB",
	"MB":  "MiB",
	"MIB": "MiB",
	"G":   "GiB",
	"GB":  "GiB",
	"GIB": "GiB",
	"T":   "TiB",
	"TB":  "TiB",
	"TIB": "TiB",
}

// FormatBytes converts bytes to human-readable IEC format ("2.0 MiB")
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// ParseSize converts a human-readable size ("1M", "1MB", "500 MiB") to
// bytes. Every unit is binary.
func ParseSize(size string) (uint64, error) {
	s := strings.TrimSpace(size)

	num, unit := s, ""
	if i := strings.IndexFunc(s, unicode.IsLetter); i >= 0 {
		num, unit = strings.TrimSpace(s[:i]), s[i:]
	}

	iec, ok := binaryUnits[strings.ToUpper(unit)]
	if num == "" || !ok {
		return 0, fmt.Errorf("invalid size format: %q", size)
	}

	n, err := humanize.ParseBytes(num + " " + iec)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %q", size)
	}
	return n, nil
}
