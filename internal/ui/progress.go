package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// LiveProgress draws a two-line scan status in place on a terminal
type LiveProgress struct {
	mu          sync.Mutex
	out         io.Writer
	root        string
	currentPath string
	memory      string
	startTime   time.Time
	lastUpdate  time.Time
	termWidth   int
	enabled     bool
	statusLines int
	now         func() time.Time
}

// NewLiveProgress creates a live display on stdout. It is disabled when
// stdout is not a terminal.
func NewLiveProgress(root string) *LiveProgress {
	fd := int(os.Stdout.Fd())
	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}

	lp := newLiveProgress(os.Stdout, root, width)
	lp.enabled = term.IsTerminal(fd)
	return lp
}

func newLiveProgress(out io.Writer, root string, width int) *LiveProgress {
	return &LiveProgress{
		out:         out,
		root:        root,
		startTime:   time.Now(),
		termWidth:   width,
		enabled:     true,
		statusLines: 2,
		now:         time.Now,
	}
}

// Start reserves the status area
func (lp *LiveProgress) Start() {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if !lp.enabled {
		return
	}
	fmt.Fprint(lp.out, strings.Repeat("\n", lp.statusLines))
	fmt.Fprintf(lp.out, "\033[%dA", lp.statusLines)
}

// Update matches scanner.ProgressFunc. Redraws are capped at ten per second.
func (lp *LiveProgress) Update(currentPath, memory string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if !lp.enabled {
		return
	}

	now := lp.now()
	if now.Sub(lp.lastUpdate) < 100*time.Millisecond {
		return
	}
	lp.lastUpdate = now
	lp.currentPath = currentPath
	lp.memory = memory

	lp.render(now)
}

func (lp *LiveProgress) render(now time.Time) {
	fmt.Fprint(lp.out, "\033[s")

	width := lp.termWidth - 2

	elapsed := now.Sub(lp.startTime).Round(time.Second)
	line1 := fmt.Sprintf("Scanning %s | heap %s | %s", lp.root, lp.memory, elapsed)
	fmt.Fprintf(lp.out, "\033[K%s\n", truncate(line1, width))

	frame := spinnerFrames[int(now.UnixMilli()/100)%len(spinnerFrames)]
	line2 := fmt.Sprintf("%s %s", frame, tail(lp.currentPath, width-2))
	fmt.Fprintf(lp.out, "\033[K%s", truncate(line2, width))

	fmt.Fprint(lp.out, "\033[u")
}

// Finish clears the status area
func (lp *LiveProgress) Finish() {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if !lp.enabled {
		return
	}
	for i := 0; i < lp.statusLines; i++ {
		fmt.Fprint(lp.out, "\033[K\n")
	}
}

// SetEnabled enables or disables live progress
func (lp *LiveProgress) SetEnabled(enabled bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.enabled = enabled
}

// truncate truncates a string to fit width
func truncate(s string, width int) string {
	if width < 4 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// tail keeps the end of a path, which is the informative part
func tail(s string, width int) string {
	if width < 4 || len(s) <= width {
		return s
	}
	return "..." + s[len(s)-(width-3):]
}
