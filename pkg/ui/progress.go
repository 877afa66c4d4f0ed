package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// Progress prints one line per session of a harvest run
type Progress struct {
	ceiling      int
	cap          int
	totalFetched int
	startTime    time.Time
}

// NewProgress creates a tracker for a run of at most ceiling sessions of
// at most cap fetches each
func NewProgress(ceiling, cap int) *Progress {
	return &Progress{ceiling: ceiling, cap: cap, startTime: time.Now()}
}

// SessionBar renders fetched against the session cap
func (p *Progress) SessionBar(fetched int) string {
	const width = 20
	filled := 0
	if p.cap > 0 {
		filled = fetched * width / p.cap
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, fetched, p.cap)
}

// TotalFetched returns fetches across all finished sessions
func (p *Progress) TotalFetched() int {
	return p.totalFetched
}

// Elapsed returns the time since the run started
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

func (p *Progress) SessionStarted(attempt int) {
	write(false, "%s session %d/%d\n", Magenta("[SESSION]"), attempt, p.ceiling)
}

func (p *Progress) SessionFinished(attempt, fetched, failed int, outcome string) {
	p.totalFetched += fetched

	label := Green("[DONE]")
	if failed > 0 || outcome != "exhausted" {
		label = Yellow("[PARTIAL]")
	}
	write(false, "%s %s failed=%d total=%d %s\n",
		label, p.SessionBar(fetched), failed, p.totalFetched, Dim(outcome))
}

func (p *Progress) CoolingDown(d time.Duration) {
	write(false, "%s re-login in %s\n", Dim("[WAIT]"), d)
}
