package progress

import (
	"fmt"
	"sync"
	"time"
)

// Phase represents the current phase of a scan
type Phase string

const (
	PhaseScanning  Phase = "scanning"
	PhaseFinishing Phase = "finishing" // Final flush and global index write
	PhaseComplete  Phase = "complete"
	PhaseError     Phase = "error"
)

// ScanProgress represents progress during scanning
type ScanProgress struct {
	Phase       Phase
	Root        string
	CurrentPath string
	Memory      string // Heap usage label, e.g. "48 MiB"
	Updates     int    // Progress callbacks received so far
	StartTime   time.Time
	Error       error
}

// Reporter provides thread-safe progress reporting
type Reporter struct {
	current   *ScanProgress
	mu        sync.RWMutex
	listeners []chan *ScanProgress
}

// NewReporter creates a new progress reporter
func NewReporter() *Reporter {
	return &Reporter{
		listeners: make([]chan *ScanProgress, 0),
	}
}

// Subscribe returns a channel that receives progress updates
func (r *Reporter) Subscribe() <-chan *ScanProgress {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan *ScanProgress, 10)
	r.listeners = append(r.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (r *Reporter) Unsubscribe(ch <-chan *ScanProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			close(listener)
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Update stores the latest progress and notifies listeners
func (r *Reporter) Update(update *ScanProgress) {
	r.mu.Lock()
	r.current = update
	listeners := make([]chan *ScanProgress, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	// Notify all listeners (non-blocking)
	for _, listener := range listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// Current returns the most recent progress
func (r *Reporter) Current() *ScanProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Tracker adapts a Reporter to the scanner's (path, memory) callback and
// keeps the running counters the callback does not carry.
type Tracker struct {
	reporter *Reporter
	root     string
	start    time.Time
	updates  int
}

// NewTracker starts tracking a scan of root
func NewTracker(reporter *Reporter, root string) *Tracker {
	t := &Tracker{reporter: reporter, root: root, start: time.Now()}
	reporter.Update(&ScanProgress{Phase: PhaseScanning, Root: root, StartTime: t.start})
	return t
}

// OnProgress matches scanner.ProgressFunc
func (t *Tracker) OnProgress(path, memory string) {
	t.updates++
	t.reporter.Update(&ScanProgress{
		Phase:       PhaseScanning,
		Root:        t.root,
		CurrentPath: path,
		Memory:      memory,
		Updates:     t.updates,
		StartTime:   t.start,
	})
}

// Finish reports the terminal phase
func (t *Tracker) Finish(err error) {
	phase := PhaseComplete
	if err != nil {
		phase = PhaseError
	}
	last := t.reporter.Current()
	update := &ScanProgress{Phase: phase, Root: t.root, StartTime: t.start, Updates: t.updates, Error: err}
	if last != nil {
		update.CurrentPath = last.CurrentPath
		update.Memory = last.Memory
	}
	t.reporter.Update(update)
}

// FormatScanProgress returns a human-readable scan progress string
func FormatScanProgress(p *ScanProgress) string {
	if p == nil {
		return "Initializing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseScanning:
		return fmt.Sprintf("Scanning %s... %s (heap %s) [%s]",
			p.Root,
			p.CurrentPath,
			p.Memory,
			FormatDuration(elapsed))
	case PhaseFinishing:
		return fmt.Sprintf("Writing index for %s... [%s]", p.Root, FormatDuration(elapsed))
	case PhaseComplete:
		return fmt.Sprintf("Scan of %s complete in %s", p.Root, FormatDuration(elapsed))
	case PhaseError:
		return fmt.Sprintf("Scan error: %v", p.Error)
	default:
		return "Scanning..."
	}
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
