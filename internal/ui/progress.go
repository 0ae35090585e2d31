package ui

import (
	"sync"
	"time"
)

// rateWindow is the minimum interval between rate samples.
const rateWindow = 500 * time.Millisecond

// StageProgress is the progress of one stage.
type StageProgress struct {
	Current int
	Total   int
	// Rate is items per second, smoothed.
	Rate float64
	Done bool
}

// Fraction returns progress in [0, 1], or 0 while Total is unknown.
func (p StageProgress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(float64(p.Current)/float64(p.Total), 1)
}

// ProgressStats is a snapshot of a tracker.
type ProgressStats struct {
	Scan        StageProgress
	Parse       StageProgress
	Complete    bool
	CurrentFile string
	ErrorCount  int
	WarnCount   int
	Elapsed     time.Duration
}

// stageState is the mutable state behind a StageProgress.
type stageState struct {
	StageProgress
	lastCurrent int
	lastSample  time.Time
}

func (s *stageState) update(current, total int, now time.Time) {
	s.Current = current
	if total > 0 {
		s.Total = total
	}
	if s.lastSample.IsZero() {
		s.lastSample = now
		return
	}
	elapsed := now.Sub(s.lastSample)
	if elapsed < rateWindow {
		return
	}
	if delta := current - s.lastCurrent; delta > 0 {
		rate := float64(delta) / elapsed.Seconds()
		if s.Rate == 0 {
			s.Rate = rate
		} else {
			s.Rate = 0.2*rate + 0.8*s.Rate
		}
	}
	s.lastCurrent = current
	s.lastSample = now
}

// ProgressTracker folds progress events of the concurrent stages into one
// view. It is safe for concurrent use.
type ProgressTracker struct {
	mu          sync.RWMutex
	start       time.Time
	scan        stageState
	parse       stageState
	complete    bool
	currentFile string
	errors      []ErrorEvent
	warnings    []ErrorEvent
	now         func() time.Time
}

// NewProgressTracker creates a tracker starting now.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{start: time.Now(), now: time.Now}
}

// Apply records event.
func (p *ProgressTracker) Apply(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	switch event.Stage {
	case StageScanning:
		p.scan.update(event.Current, event.Total, now)
	case StageParsing:
		p.parse.update(event.Current, event.Total, now)
		if event.Total > 0 && event.Current >= event.Total {
			p.parse.Done = true
		}
	case StageComplete:
		p.markCompleteLocked()
	}
	if event.CurrentFile != "" {
		p.currentFile = event.CurrentFile
	}
}

// Complete marks every stage done.
func (p *ProgressTracker) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markCompleteLocked()
}

func (p *ProgressTracker) markCompleteLocked() {
	p.complete = true
	p.scan.Done = true
	p.parse.Done = true
	p.currentFile = ""
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Stats returns a snapshot.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressStats{
		Scan:        p.scan.StageProgress,
		Parse:       p.parse.StageProgress,
		Complete:    p.complete,
		CurrentFile: p.currentFile,
		ErrorCount:  len(p.errors),
		WarnCount:   len(p.warnings),
		Elapsed:     p.now().Sub(p.start),
	}
}

// Warnings returns the recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ErrorEvent(nil), p.warnings...)
}

// Errors returns the recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ErrorEvent(nil), p.errors...)
}
