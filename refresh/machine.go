package refresh

import (
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go-exchange-rate-converter/convert"
	"go-exchange-rate-converter/domain"
	"go-exchange-rate-converter/input"
)

// cause why a table was requested, deciding where a completed fetch lands
type cause int

const (
	causeStart cause = iota
	causeTick
	causeSettle
)

func (c cause) String() string {
	switch c {
	case causeStart:
		return "start"
	case causeTick:
		return "tick"
	}
	return "settle"
}

// request an outstanding table fetch
type request struct {
	id    uuid.UUID
	base  domain.Currency
	cause cause
}

// result a completed table fetch, tagged with the request it answers
type result struct {
	id    uuid.UUID
	base  domain.Currency
	table domain.RateTable
	err   error
}

type timerCommand int

const (
	timerKeep timerCommand = iota
	timerStart
	timerSuspend
)

// effect work the owner of a machine must carry out after a transition
type effect struct {
	fetch   *request
	timer   timerCommand
	changed bool
}

// machine the display state and its transitions. It does no I/O and is not safe for
// concurrent use: exactly one goroutine owns it.
type machine struct {
	state State
	timer TimerState

	// base currency the rows are expressed relative to, always order[0] once loaded
	base   domain.Currency
	amount decimal.Decimal
	order  []domain.Currency

	// amounts converted amounts of non-base rows; a missing entry is an unconverted row
	amounts map[domain.Currency]decimal.Decimal

	// table the last good table, meaningful once ready
	table domain.RateTable

	pending *request
	err     error

	converter convert.Service
	logger    log.Logger
}

func newMachine(base domain.Currency, amount decimal.Decimal, converter convert.Service, logger log.Logger) *machine {
	return &machine{
		state:     Idle,
		timer:     Suspended,
		base:      base,
		amount:    amount,
		amounts:   map[domain.Currency]decimal.Decimal{},
		converter: converter,
		logger:    logger,
	}
}

// ready reports whether a table has loaded at least once
func (m *machine) ready() bool {
	if m.state == Idle {
		return false
	}
	return m.pending == nil || m.pending.cause != causeStart
}

func (m *machine) request(c cause) effect {
	req := &request{id: uuid.New(), base: m.base, cause: c}
	m.pending = req
	m.state = Refreshing
	level.Debug(m.logger).Log("msg", "requesting table", "base", req.base, "cause", c, "request", req.id)
	return effect{fetch: req, changed: true}
}

func (m *machine) start() effect {
	if m.state != Idle {
		return effect{}
	}
	return m.request(causeStart)
}

// tick a periodic timer fire. Ignored unless polling with the timer running.
func (m *machine) tick() effect {
	if m.state != Polling || m.timer != Running {
		return effect{}
	}
	return m.request(causeTick)
}

// refresh an explicit request for a new table, also the way to retry a failed fetch
func (m *machine) refresh() effect {
	switch m.state {
	case Idle:
		return m.request(causeStart)
	case Polling:
		return m.request(causeTick)
	case EditingPaused:
		return m.request(causeSettle)
	}
	return effect{}
}

// beginEdit makes code the base: the timer is suspended and the row moves to the top.
func (m *machine) beginEdit(code domain.Currency) (effect, error) {
	if !m.ready() {
		return effect{}, ErrNotReady
	}
	i := indexOf(m.order, code)
	if i < 0 {
		return effect{}, fmt.Errorf("edit [%v]: %w", code, ErrUnknownRow)
	}
	if code == m.base {
		return effect{}, nil
	}

	eff := effect{changed: true}
	if m.timer == Running {
		m.timer = Suspended
		eff.timer = timerSuspend
	}

	// the edited row keeps showing what it showed until the user types
	amount, ok := m.amounts[code]
	if !ok {
		amount = decimal.Zero
	}
	m.amounts[m.base] = m.amount
	delete(m.amounts, code)

	m.order = moveToFront(m.order, i)
	m.base = code
	m.amount = amount
	m.state = EditingPaused
	if m.pending != nil {
		level.Debug(m.logger).Log("msg", "abandoning request", "base", m.pending.base, "request", m.pending.id)
		m.pending = nil
	}

	level.Debug(m.logger).Log("msg", "editing", "base", m.base, "order", fmt.Sprint(m.order))
	return eff, nil
}

// updateText the edited amount changed. Rows are recomputed only when the held table is
// quoted against the current base; otherwise they keep their amounts until the next refresh.
func (m *machine) updateText(text string) effect {
	m.amount = input.AmountOrZero(text)
	if m.ready() && m.table.Base() == m.base {
		m.recompute()
	}
	return effect{changed: true}
}

// endEdit the edit settled, fetch a table for the new base
func (m *machine) endEdit() effect {
	if m.state != EditingPaused {
		return effect{}
	}
	return m.request(causeSettle)
}

// complete applies a finished fetch. Results that do not answer the outstanding request for
// the current base are discarded.
func (m *machine) complete(res result) effect {
	req := m.pending
	if req == nil || req.id != res.id || res.base != m.base {
		level.Info(m.logger).Log("msg", "discarding stale table", "base", res.base, "current_base", m.base, "request", res.id)
		return effect{}
	}
	m.pending = nil

	err := res.err
	if err == nil && res.table.Base() != req.base {
		err = &domain.FetchError{Base: req.base, Reason: domain.ReasonDecode, Err: fmt.Errorf("table quoted against [%v]", res.table.Base())}
	}
	if err != nil {
		m.err = err
		switch req.cause {
		case causeStart:
			m.state = Idle
		case causeTick:
			m.state = Polling
		case causeSettle:
			m.state = EditingPaused
		}
		level.Warn(m.logger).Log("msg", "table fetch failed", "base", req.base, "cause", req.cause, "state", m.state, "err", err)
		return effect{changed: true}
	}

	m.err = nil
	m.table = res.table
	if req.cause == causeStart {
		m.order = append([]domain.Currency{m.base}, res.table.Currencies()...)
	} else {
		m.merge()
	}
	m.recompute()
	m.state = Polling

	eff := effect{changed: true}
	if m.timer == Suspended {
		m.timer = Running
		eff.timer = timerStart
	}
	level.Debug(m.logger).Log("msg", "table applied", "base", m.base, "cause", req.cause, "rows", len(m.order))
	return eff
}

// merge appends currencies the table quotes that are not displayed yet
func (m *machine) merge() {
	for _, code := range m.table.Currencies() {
		if indexOf(m.order, code) < 0 {
			m.order = append(m.order, code)
		}
	}
}

func (m *machine) recompute() {
	amounts := make(map[domain.Currency]decimal.Decimal, len(m.order))
	for _, code := range m.order {
		if code == m.base {
			continue
		}
		converted, err := m.converter.Convert(m.amount, m.base, code, m.table)
		if err != nil {
			continue
		}
		amounts[code] = converted
	}
	m.amounts = amounts
}

func (m *machine) display(names NameFunc) Display {
	rows := make([]Row, 0, len(m.order))
	for _, code := range m.order {
		row := Row{Currency: code, Name: names(code)}
		if code == m.base {
			row.Amount, row.Converted = m.amount, true
		} else if amount, ok := m.amounts[code]; ok {
			row.Amount, row.Converted = amount, true
		}
		rows = append(rows, row)
	}

	return Display{
		State:      m.state,
		Timer:      m.timer,
		Base:       m.base,
		BaseAmount: m.amount,
		Rows:       rows,
		UpdatedAt:  m.table.UpdatedAt(),
		Err:        m.err,
	}
}

func indexOf(codes []domain.Currency, code domain.Currency) int {
	for i, c := range codes {
		if c == code {
			return i
		}
	}
	return -1
}

// moveToFront returns a copy of codes with codes[i] first and the others in their original order
func moveToFront(codes []domain.Currency, i int) []domain.Currency {
	out := make([]domain.Currency, 0, len(codes))
	out = append(out, codes[i])
	out = append(out, codes[:i]...)
	return append(out, codes[i+1:]...)
}
