package refresh

import (
	"time"
)

// Timer the periodic refresh schedule. Start and Suspend may be called any number of times.
type Timer interface {
	C() <-chan time.Time
	Start()
	Suspend()
	Stop()
}

// ticker a Timer backed by time.Ticker
type ticker struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewTicker returns a suspended Timer firing every interval once started.
func NewTicker(interval time.Duration) Timer {
	t := time.NewTicker(interval)
	t.Stop()
	return &ticker{
		interval: interval,
		ticker:   t,
	}
}

func (t *ticker) C() <-chan time.Time {
	return t.ticker.C
}

// Start schedules the first tick one interval from now.
func (t *ticker) Start() {
	t.ticker.Reset(t.interval)
}

func (t *ticker) Suspend() {
	t.ticker.Stop()
}

func (t *ticker) Stop() {
	t.ticker.Stop()
}
