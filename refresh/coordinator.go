// Package refresh keeps the displayed board of converted amounts current: it polls the rate
// source on a timer, suspends polling while a row is being edited and discards tables that
// arrive for a base the user has already moved away from.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shopspring/decimal"
	"go-exchange-rate-converter/convert"
	"go-exchange-rate-converter/domain"
	"go-exchange-rate-converter/ratesource"
	"sync"
)

const (
	DefaultBase = domain.Currency("GBP")
)

var (
	DefaultAmount = decimal.NewFromInt(100)

	ErrUnknownRow     = errors.New("unknown row")
	ErrNotReady       = errors.New("no table loaded yet")
	ErrStopped        = errors.New("coordinator stopped")
	ErrAlreadyRunning = errors.New("coordinator already running")
)

type options struct {
	base   domain.Currency
	amount decimal.Decimal
	names  NameFunc
}

// Option configures a Coordinator
type Option func(*options)

// WithBase sets the base currency requested on start
func WithBase(base domain.Currency) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithAmount sets the base amount shown before the user types anything
func WithAmount(amount decimal.Decimal) Option {
	return func(o *options) {
		o.amount = amount
	}
}

// WithNames sets how currency display names are resolved
func WithNames(names NameFunc) Option {
	return func(o *options) {
		o.names = names
	}
}

// Coordinator owns the board state. All transitions happen on the goroutine running Run;
// the exported methods hand work to it and wait for the answer.
type Coordinator struct {
	source ratesource.Service
	timer  Timer
	logger log.Logger
	names  NameFunc

	machine *machine

	commands chan func(*machine) effect
	results  chan result
	updates  chan Display
	done     chan struct{}

	mu      sync.Mutex
	started bool
}

func New(source ratesource.Service, converter convert.Service, timer Timer, logger log.Logger, opts ...Option) *Coordinator {
	o := options{
		base:   DefaultBase,
		amount: DefaultAmount,
		names:  noName,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger = log.With(logger, "component", "refresh")
	return &Coordinator{
		source:   source,
		timer:    timer,
		logger:   logger,
		names:    o.names,
		machine:  newMachine(o.base, o.amount, converter, logger),
		commands: make(chan func(*machine) effect),
		results:  make(chan result),
		updates:  make(chan Display, 1),
		done:     make(chan struct{}),
	}
}

// Run owns the board until ctx is done. It may be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.started = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		// in-flight fetches give up and their results are dropped
		cancel()
		wg.Wait()
		c.timer.Stop()
		close(c.done)
	}()

	level.Info(c.logger).Log("msg", "starting", "base", c.machine.base)
	c.apply(ctx, &wg, c.machine.start())

	for {
		select {
		case <-ctx.Done():
			level.Info(c.logger).Log("msg", "stopping", "err", ctx.Err())
			return ctx.Err()
		case <-c.timer.C():
			c.apply(ctx, &wg, c.machine.tick())
		case res := <-c.results:
			c.apply(ctx, &wg, c.machine.complete(res))
		case cmd := <-c.commands:
			c.apply(ctx, &wg, cmd(c.machine))
		}
	}
}

func (c *Coordinator) apply(ctx context.Context, wg *sync.WaitGroup, eff effect) {
	switch eff.timer {
	case timerStart:
		c.timer.Start()
	case timerSuspend:
		c.timer.Suspend()
	}
	if eff.fetch != nil {
		wg.Add(1)
		go func(req request) {
			defer wg.Done()
			c.fetch(ctx, req)
		}(*eff.fetch)
	}
	if eff.changed {
		c.publish(c.machine.display(c.names))
	}
}

func (c *Coordinator) fetch(ctx context.Context, req request) {
	table, err := c.source.LatestTable(ctx, req.base)
	select {
	case c.results <- result{id: req.id, base: req.base, table: table, err: err}:
	case <-ctx.Done():
	}
}

// publish replaces any snapshot nobody has read yet
func (c *Coordinator) publish(d Display) {
	select {
	case <-c.updates:
	default:
	}
	c.updates <- d
}

// do runs fn on the owning goroutine
func (c *Coordinator) do(ctx context.Context, fn func(*machine) effect) error {
	reply := make(chan struct{})
	cmd := func(m *machine) effect {
		defer close(reply)
		return fn(m)
	}

	select {
	case c.commands <- cmd:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-reply
	return nil
}

// BeginEdit makes code the base currency and suspends polling until EndEdit.
func (c *Coordinator) BeginEdit(ctx context.Context, code domain.Currency) error {
	var editErr error
	err := c.do(ctx, func(m *machine) effect {
		var eff effect
		eff, editErr = m.beginEdit(code)
		return eff
	})
	if err != nil {
		return err
	}
	if editErr != nil {
		return fmt.Errorf("begin edit: %w", editErr)
	}
	return nil
}

// UpdateText sets the base amount from text being typed. Unparseable text counts as zero.
func (c *Coordinator) UpdateText(ctx context.Context, text string) error {
	return c.do(ctx, func(m *machine) effect {
		return m.updateText(text)
	})
}

// EndEdit requests a table for the edited base. Polling resumes once it arrives.
func (c *Coordinator) EndEdit(ctx context.Context) error {
	return c.do(ctx, func(m *machine) effect {
		return m.endEdit()
	})
}

// Refresh requests a new table now, retrying a failed fetch.
func (c *Coordinator) Refresh(ctx context.Context) error {
	return c.do(ctx, func(m *machine) effect {
		return m.refresh()
	})
}

// Display returns the current snapshot.
func (c *Coordinator) Display(ctx context.Context) (Display, error) {
	var d Display
	err := c.do(ctx, func(m *machine) effect {
		d = m.display(c.names)
		return effect{}
	})
	return d, err
}

// Updates delivers the latest snapshot after every change. Snapshots not read in time are
// replaced by newer ones.
func (c *Coordinator) Updates() <-chan Display {
	return c.updates
}
