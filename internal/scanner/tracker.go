package scanner

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fenilsonani/diskindex/internal/store"
)

const diagnosticTailSize = 2000

var restrictionPattern = regexp.MustCompile(`du:\s+(.+?):\s+(Permission denied|Operation not permitted)`)

// Restriction is a path du reported as unreadable
type Restriction struct {
	Parent string
	Entry  store.FileEntry
	Reason RestrictionReason
}

// Tracker reads du's diagnostic stream. It turns permission failures into
// restricted entries and keeps a bounded tail of everything else it saw.
type Tracker struct {
	tail []byte
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Track consumes one diagnostic line. It never fails; lines that name no
// restricted path only feed the diagnostic tail.
func (t *Tracker) Track(line string) (Restriction, bool) {
	t.record(line)

	if !strings.Contains(line, "denied") && !strings.Contains(line, "permitted") {
		return Restriction{}, false
	}

	m := restrictionPattern.FindStringSubmatch(line)
	if m == nil {
		return Restriction{}, false
	}

	path := strings.TrimSpace(m[1])
	// GNU du quotes paths: du: cannot read directory '/x': Permission denied
	path = strings.TrimPrefix(path, "cannot read directory ")
	path = strings.TrimPrefix(path, "cannot access ")
	path = strings.Trim(path, "'‘’")
	if path == "" {
		return Restriction{}, false
	}

	return Restriction{
		Parent: filepath.Dir(path),
		Entry: store.FileEntry{
			Path:          path,
			Name:          filepath.Base(path),
			Bytes:         0,
			FormattedSize: store.RestrictedLabel,
		},
		Reason: parseReason(m[2]),
	}, true
}

func (t *Tracker) record(line string) {
	t.tail = append(t.tail, line...)
	t.tail = append(t.tail, '\n')
	if over := len(t.tail) - diagnosticTailSize; over > 0 {
		t.tail = append(t.tail[:0], t.tail[over:]...)
	}
}

// Tail returns up to the last n characters of the diagnostic stream
func (t *Tracker) Tail(n int) string {
	if n <= 0 || n >= len(t.tail) {
		return string(t.tail)
	}
	return string(t.tail[len(t.tail)-n:])
}
