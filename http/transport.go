package http

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go-exchange-rate-converter/convert"
	"go-exchange-rate-converter/domain"
	"go-exchange-rate-converter/input"
	"go-exchange-rate-converter/ratesource"
	"go-exchange-rate-converter/refresh"
	"net/http"
	"time"
)

// Board the live board the display routes drive
type Board interface {
	BeginEdit(ctx context.Context, code domain.Currency) error
	UpdateText(ctx context.Context, text string) error
	EndEdit(ctx context.Context) error
	Refresh(ctx context.Context) error
	Display(ctx context.Context) (refresh.Display, error)
}

// Server dependencies for HTTP Server functions
type Server struct {
	Rates     ratesource.Service
	Converter convert.Service
	Board     Board
	Logger    log.Logger
	router    *http.ServeMux
	metrics   http.Handler
}

func NewServer(rates ratesource.Service, converter convert.Service, board Board, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	server := &Server{
		Rates:     rates,
		Converter: converter,
		Board:     board,
		Logger:    log.With(logger, "component", "http"),
		router:    http.NewServeMux(),
		metrics:   promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
	server.routes()
	return server
}

func (s *Server) routes() {
	s.router.Handle("POST /api/convert", s.convert())
	s.router.Handle("GET /api/board", s.board())
	s.router.Handle("POST /api/board/edit", s.edit())
	s.router.Handle("POST /api/board/amount", s.amount())
	s.router.Handle("POST /api/board/settle", s.command(s.Board.EndEdit))
	s.router.Handle("POST /api/board/refresh", s.command(s.Board.Refresh))
	s.router.Handle("/metrics", s.metrics)
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

// convert produces HTTP handler for one-off currency conversions
func (s *Server) convert() http.HandlerFunc {

	// request for unmarshalling JSON requests posted by clients
	type request struct {
		FromCurrency string          `json:"fromCurrency"`
		ToCurrency   string          `json:"toCurrency"`
		Amount       decimal.Decimal `json:"amount"`
	}

	// response for marshalling JSON responses to return to clients
	type response struct {
		Rate     string          `json:"rate"`
		Amount   decimal.Decimal `json:"amount"`
		Original decimal.Decimal `json:"original"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		var request request
		if err := decode(r, &request); err != nil {
			s.fail(rw, http.StatusBadRequest, "invalid json", err)
			return
		}

		from, err := domain.ParseCurrency(request.FromCurrency)
		if err != nil {
			s.fail(rw, http.StatusBadRequest, "invalid currency", err)
			return
		}
		to, err := domain.ParseCurrency(request.ToCurrency)
		if err != nil {
			s.fail(rw, http.StatusBadRequest, "invalid currency", err)
			return
		}
		if request.Amount.IsNegative() {
			s.fail(rw, http.StatusBadRequest, "invalid amount", input.ErrNegativeValue)
			return
		}

		if from == to {
			s.respond(rw, http.StatusOK, response{
				Rate:     "1",
				Amount:   request.Amount,
				Original: request.Amount,
			})
			return
		}

		table, err := s.Rates.LatestTable(r.Context(), from)
		if err != nil {
			s.fail(rw, http.StatusBadGateway, "rates unavailable", err)
			return
		}
		if !s.Converter.Validate(from, to, table) {
			s.fail(rw, http.StatusBadRequest, "unsupported currency", domain.ErrUnknownTargetCurrency)
			return
		}

		converted, err := s.Converter.Convert(request.Amount, from, to, table)
		if err != nil {
			s.fail(rw, http.StatusBadRequest, "failed conversion", err)
			return
		}

		quoted, _ := table.Lookup(to)
		s.respond(rw, http.StatusOK, response{
			Rate:     quoted.String(),
			Amount:   converted,
			Original: request.Amount,
		})
	}
}

// row one board row as shown to clients, Amount is absent for an unconverted row
type row struct {
	Currency domain.Currency  `json:"currency"`
	Name     string           `json:"name,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

type boardResponse struct {
	State      string          `json:"state"`
	Timer      string          `json:"timer"`
	Base       domain.Currency `json:"base"`
	BaseAmount decimal.Decimal `json:"baseAmount"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
	Error      string          `json:"error,omitempty"`
	Rows       []row           `json:"rows"`
}

func newBoardResponse(d refresh.Display) boardResponse {
	resp := boardResponse{
		State:      d.State.String(),
		Timer:      d.Timer.String(),
		Base:       d.Base,
		BaseAmount: d.BaseAmount,
		Rows:       make([]row, 0, len(d.Rows)),
	}
	if !d.UpdatedAt.IsZero() {
		updatedAt := d.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	if d.Err != nil {
		resp.Error = d.Err.Error()
	}
	for _, r := range d.Rows {
		out := row{Currency: r.Currency, Name: r.Name}
		if r.Converted {
			amount := r.Amount
			out.Amount = &amount
		}
		resp.Rows = append(resp.Rows, out)
	}
	return resp
}

// board produces HTTP handler returning the current board
func (s *Server) board() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		s.respondBoard(rw, r)
	}
}

// edit produces HTTP handler that makes a row the base currency
func (s *Server) edit() http.HandlerFunc {

	type request struct {
		Currency string `json:"currency"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		var request request
		if err := decode(r, &request); err != nil {
			s.fail(rw, http.StatusBadRequest, "invalid json", err)
			return
		}
		code, err := domain.ParseCurrency(request.Currency)
		if err != nil {
			s.fail(rw, http.StatusBadRequest, "invalid currency", err)
			return
		}

		if err := s.Board.BeginEdit(r.Context(), code); err != nil {
			s.failBoard(rw, err)
			return
		}
		s.respondBoard(rw, r)
	}
}

// amount produces HTTP handler for each keystroke in the edited row
func (s *Server) amount() http.HandlerFunc {

	type request struct {
		Text string `json:"text"`
	}

	type rejected struct {
		Accepted bool `json:"accepted"`
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		var request request
		if err := decode(r, &request); err != nil {
			s.fail(rw, http.StatusBadRequest, "invalid json", err)
			return
		}
		if !input.Validate(request.Text) {
			s.respond(rw, http.StatusUnprocessableEntity, rejected{Accepted: false})
			return
		}

		if err := s.Board.UpdateText(r.Context(), request.Text); err != nil {
			s.failBoard(rw, err)
			return
		}
		s.respondBoard(rw, r)
	}
}

// command produces HTTP handler running a board command that takes no arguments
func (s *Server) command(fn func(context.Context) error) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context()); err != nil {
			s.failBoard(rw, err)
			return
		}
		s.respondBoard(rw, r)
	}
}

func (s *Server) respondBoard(rw http.ResponseWriter, r *http.Request) {
	d, err := s.Board.Display(r.Context())
	if err != nil {
		s.failBoard(rw, err)
		return
	}
	s.respond(rw, http.StatusOK, newBoardResponse(d))
}

func (s *Server) failBoard(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, refresh.ErrUnknownRow):
		s.fail(rw, http.StatusNotFound, "unknown row", err)
	case errors.Is(err, refresh.ErrNotReady):
		s.fail(rw, http.StatusConflict, "no rates loaded yet", err)
	case errors.Is(err, refresh.ErrStopped):
		s.fail(rw, http.StatusServiceUnavailable, "board stopped", err)
	default:
		s.fail(rw, http.StatusInternalServerError, "board unavailable", err)
	}
}

func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) respond(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		level.Error(s.Logger).Log("msg", "failed json encoding", "err", err)
	}
}

func (s *Server) fail(rw http.ResponseWriter, status int, msg string, err error) {
	level.Debug(s.Logger).Log("msg", msg, "status", status, "err", err)

	type response struct {
		Error string `json:"error"`
	}
	s.respond(rw, status, response{Error: msg})
}
