package refresh

import (
	"fmt"
	"github.com/shopspring/decimal"
	"go-exchange-rate-converter/domain"
	"time"
)

// State of the refresh coordinator
type State int

const (
	// Idle no table has loaded yet
	Idle State = iota

	// Polling a table is present and the timer is running
	Polling

	// EditingPaused the user is editing a row, the timer is suspended
	EditingPaused

	// Refreshing a table fetch is outstanding
	Refreshing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case EditingPaused:
		return "editing_paused"
	case Refreshing:
		return "refreshing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// TimerState whether periodic refreshes are scheduled
type TimerState int

const (
	Suspended TimerState = iota
	Running
)

func (s TimerState) String() string {
	if s == Running {
		return "running"
	}
	return "suspended"
}

// NameFunc resolves the display name of a currency
type NameFunc func(domain.Currency) string

func noName(domain.Currency) string {
	return ""
}

// Row one displayed currency
type Row struct {
	Currency domain.Currency
	Name     string

	// Amount meaningful only when Converted
	Amount decimal.Decimal

	// Converted false marks a row no amount is available for
	Converted bool
}

// Display a snapshot of everything the display layer shows.
// Rows[0] is always the base currency once a table has loaded.
type Display struct {
	State      State
	Timer      TimerState
	Base       domain.Currency
	BaseAmount decimal.Decimal
	Rows       []Row

	// UpdatedAt publication time of the table the rows were computed from
	UpdatedAt time.Time

	// Err the last failed fetch, nil once a fetch succeeds
	Err error
}
