package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fenilsonani/diskindex/internal/store"
	"github.com/fenilsonani/diskindex/pkg/utils"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Listing is what gets reported: one directory snapshot or a slice of the
// global index.
type Listing struct {
	Title      string            `json:"title" yaml:"title"`
	Accessible []store.FileEntry `json:"accessible" yaml:"accessible"`
	Restricted []store.FileEntry `json:"restricted,omitempty" yaml:"restricted,omitempty"`
}

// FromSnapshot builds a listing for dir. A nil snapshot yields an empty listing.
func FromSnapshot(dir string, snap *store.DirectorySnapshot) *Listing {
	l := &Listing{Title: dir, Accessible: []store.FileEntry{}}
	if snap != nil {
		l.Accessible = snap.Accessible
		l.Restricted = snap.Restricted
	}
	return l
}

// FromEntries builds a listing of global index entries
func FromEntries(title string, entries []store.FileEntry) *Listing {
	if entries == nil {
		entries = []store.FileEntry{}
	}
	return &Listing{Title: title, Accessible: entries}
}

// TotalBytes sums the accessible entries
func (l *Listing) TotalBytes() uint64 {
	var total uint64
	for _, e := range l.Accessible {
		total += e.Bytes
	}
	return total
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
	now    func() time.Time
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
		now:    time.Now,
	}
}

// Report writes the listing in the reporter's format
func (r *Reporter) Report(l *Listing) error {
	switch r.format {
	case FormatTable:
		return r.reportTable(l)
	case FormatJSON:
		return r.reportJSON(l)
	case FormatYAML:
		return r.reportYAML(l)
	case FormatSummary:
		return r.reportSummary(l)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary generates a summary report
func (r *Reporter) reportSummary(l *Listing) error {
	fmt.Fprintf(r.writer, "=== %s ===\n", l.Title)
	fmt.Fprintf(r.writer, "Entries: %d\n", len(l.Accessible))
	fmt.Fprintf(r.writer, "Total Size: %s\n", utils.FormatBytes(l.TotalBytes()))

	if len(l.Accessible) > 0 {
		largest := l.Accessible[0]
		fmt.Fprintf(r.writer, "Largest: %s (%s)\n", largest.Path, largest.FormattedSize)
	}
	if len(l.Restricted) > 0 {
		fmt.Fprintf(r.writer, "\nRestricted: %d\n", len(l.Restricted))
	}

	return nil
}

// reportTable generates a table report
func (r *Reporter) reportTable(l *Listing) error {
	rule := strings.Repeat("-", 80)

	fmt.Fprintf(r.writer, "%-64s | %s\n", "Path", "Size")
	fmt.Fprintf(r.writer, "%s\n", rule)

	for _, list := range [][]store.FileEntry{l.Accessible, l.Restricted} {
		for _, e := range list {
			path := e.Path
			if len(path) > 64 {
				path = "..." + path[len(path)-61:]
			}
			fmt.Fprintf(r.writer, "%-64s | %s\n", path, e.FormattedSize)
		}
	}

	fmt.Fprintf(r.writer, "%s\n", rule)
	fmt.Fprintf(r.writer, "Total: %d entries, %s", len(l.Accessible), utils.FormatBytes(l.TotalBytes()))
	if len(l.Restricted) > 0 {
		fmt.Fprintf(r.writer, ", %d restricted", len(l.Restricted))
	}
	fmt.Fprintln(r.writer)

	return nil
}

type document struct {
	Timestamp          string `json:"timestamp" yaml:"timestamp"`
	TotalSize          uint64 `json:"total_size" yaml:"total_size"`
	TotalSizeFormatted string `json:"total_size_formatted" yaml:"total_size_formatted"`
	Listing            `yaml:",inline"`
}

func (r *Reporter) document(l *Listing) document {
	total := l.TotalBytes()
	return document{
		Timestamp:          r.now().Format(time.RFC3339),
		TotalSize:          total,
		TotalSizeFormatted: utils.FormatBytes(total),
		Listing:            *l,
	}
}

// reportJSON generates a JSON report
func (r *Reporter) reportJSON(l *Listing) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r.document(l))
}

// reportYAML generates a YAML report
func (r *Reporter) reportYAML(l *Listing) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(r.document(l))
}

// SaveToFile saves the report to a file
func SaveToFile(l *Listing, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	return New(file, format).Report(l)
}
