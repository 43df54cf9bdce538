package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fenilsonani/diskindex/internal/config"
	"github.com/fenilsonani/diskindex/internal/metrics"
)

// Entry is one accepted size-listing line
type Entry struct {
	Path string
	KB   int64
}

// Bytes converts the listed kilobytes to bytes
func (e Entry) Bytes() uint64 {
	return uint64(e.KB) * 1024
}

// Parser turns du output lines into entries, dropping small files and
// anything under an excluded path segment.
type Parser struct {
	minKB   int64
	exclude *regexp.Regexp
	metrics *metrics.Metrics
}

// NewParser builds a parser. An empty segment list disables path exclusion.
func NewParser(minKB int64, segments []string) *Parser {
	return &Parser{minKB: minKB, exclude: excludePattern(segments)}
}

var defaultParser = NewParser(config.DefaultMinFileKB, config.DefaultExcludeSegments())

// ParseLine parses a line with the default thresholds.
func ParseLine(line string) (Entry, bool) {
	return defaultParser.Parse(line)
}

// excludePattern matches any of segments as a whole path component
func excludePattern(segments []string) *regexp.Regexp {
	quoted := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			quoted = append(quoted, regexp.QuoteMeta(s))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)/(` + strings.Join(quoted, "|") + `)(/|$)`)
}

// Parse accepts "<kb>\t<path>". Rejections are checked in order: missing
// tab, non-integer size, size below the minimum, excluded segment.
func (p *Parser) Parse(line string) (Entry, bool) {
	sizeField, path, ok := strings.Cut(line, "\t")
	if !ok {
		p.metrics.LineRejected(metrics.RejectNoTab)
		return Entry{}, false
	}

	kb, err := strconv.ParseInt(strings.TrimSpace(sizeField), 10, 64)
	if err != nil || kb < 0 {
		p.metrics.LineRejected(metrics.RejectBadSize)
		return Entry{}, false
	}
	if kb < p.minKB {
		p.metrics.LineRejected(metrics.RejectTooSmall)
		return Entry{}, false
	}

	path = strings.TrimRight(path, "\r\n")
	if p.exclude != nil && p.exclude.MatchString(filepath.ToSlash(path)) {
		p.metrics.LineRejected(metrics.RejectExcluded)
		return Entry{}, false
	}

	p.metrics.LineParsed()
	return Entry{Path: path, KB: kb}, true
}
