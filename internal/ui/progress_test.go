package ui

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*ProgressTracker, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	p := NewProgressTracker()
	p.start = c.t
	p.now = c.now
	return p, c
}

func TestProgressTracker_StagesAreIndependent(t *testing.T) {
	// Given
	p, _ := newTestTracker()

	// When: scanning and parsing report interleaved
	p.Apply(ProgressEvent{Stage: StageScanning, Current: 500})
	p.Apply(ProgressEvent{Stage: StageParsing, Current: 2, Total: 8, CurrentFile: "src/A.java"})
	p.Apply(ProgressEvent{Stage: StageScanning, Current: 1000})

	// Then
	s := p.Stats()
	assert.Equal(t, 1000, s.Scan.Current)
	assert.Zero(t, s.Scan.Total)
	assert.Equal(t, 2, s.Parse.Current)
	assert.Equal(t, 8, s.Parse.Total)
	assert.InDelta(t, 0.25, s.Parse.Fraction(), 1e-9)
	assert.Equal(t, "src/A.java", s.CurrentFile)
	assert.False(t, s.Complete)
}

func TestProgressTracker_ParseDoneAtTotal(t *testing.T) {
	p, _ := newTestTracker()

	p.Apply(ProgressEvent{Stage: StageParsing, Current: 4, Total: 4})

	s := p.Stats()
	assert.True(t, s.Parse.Done)
	assert.False(t, s.Scan.Done)
}

func TestProgressTracker_Rate(t *testing.T) {
	// Given
	p, c := newTestTracker()
	p.Apply(ProgressEvent{Stage: StageScanning, Current: 0})

	// When: 1000 files in one second
	c.advance(time.Second)
	p.Apply(ProgressEvent{Stage: StageScanning, Current: 1000})

	// Then
	assert.InDelta(t, 1000, p.Stats().Scan.Rate, 1e-6)

	// When: an update inside the sampling window
	c.advance(100 * time.Millisecond)
	p.Apply(ProgressEvent{Stage: StageScanning, Current: 5000})

	// Then: the rate is unchanged
	assert.InDelta(t, 1000, p.Stats().Scan.Rate, 1e-6)
}

func TestProgressTracker_Complete(t *testing.T) {
	p, c := newTestTracker()
	p.Apply(ProgressEvent{Stage: StageParsing, Current: 1, Total: 3, CurrentFile: "x"})
	c.advance(2 * time.Second)

	p.Complete()

	s := p.Stats()
	assert.True(t, s.Complete)
	assert.True(t, s.Scan.Done)
	assert.True(t, s.Parse.Done)
	assert.Empty(t, s.CurrentFile)
	assert.Equal(t, 2*time.Second, s.Elapsed)
}

func TestProgressTracker_Errors(t *testing.T) {
	p, _ := newTestTracker()

	p.AddError(ErrorEvent{File: "a", Err: errors.New("x"), IsWarn: true})
	p.AddError(ErrorEvent{File: "b", Err: errors.New("y")})
	p.AddError(ErrorEvent{File: "c", Err: errors.New("z"), IsWarn: true})

	s := p.Stats()
	assert.Equal(t, 2, s.WarnCount)
	assert.Equal(t, 1, s.ErrorCount)
	assert.Len(t, p.Warnings(), 2)
	assert.Equal(t, "b", p.Errors()[0].File)
}

func TestStageProgress_Fraction(t *testing.T) {
	assert.Zero(t, StageProgress{Current: 5}.Fraction())
	assert.Equal(t, 1.0, StageProgress{Current: 12, Total: 10}.Fraction())
}

func TestProgressTracker_ConcurrentApply(t *testing.T) {
	p := NewProgressTracker()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				p.Apply(ProgressEvent{Stage: Stage(i % 2), Current: j, Total: 100})
				_ = p.Stats()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, p.Stats().Parse.Total)
}
