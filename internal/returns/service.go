package returns

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patriciomferrari/finanzas-api/internal/types"
	"github.com/patriciomferrari/finanzas-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrNoCashflows = errors.New("no cashflows for instrument")

// XIRRRequest is an ad-hoc cashflow stream to solve.
type XIRRRequest struct {
	Amounts []float64   `json:"amounts" binding:"required"`
	Dates   []time.Time `json:"dates" binding:"required"`
}

// XIRRResponse carries the solver outcome. Rate is null when the solver
// found no solution; clients render that as N/A.
type XIRRResponse struct {
	Rate      *float64  `json:"rate"`
	Converged bool      `json:"converged"`
	Cashflows int       `json:"cashflows"`
	Timestamp time.Time `json:"timestamp"`
}

// Service computes money-weighted returns for ad-hoc streams and for stored
// instrument transaction histories.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// SolveStream runs the solver over a caller-supplied stream.
func (s *Service) SolveStream(req XIRRRequest) (*XIRRResponse, error) {
	rate, ok, err := Solve(req.Amounts, req.Dates)
	if err != nil {
		return nil, err
	}

	resp := &XIRRResponse{
		Converged: ok,
		Cashflows: len(req.Amounts),
		Timestamp: time.Now(),
	}
	if ok {
		resp.Rate = &rate
	}
	return resp, nil
}

// InstrumentReturn builds a cashflow stream from an instrument's stored
// transactions and solves it. Buys are outflows (negative), sells inflows
// (positive). A positive currentValue is appended as a terminal inflow dated
// today, valuing the still-open position.
func (s *Service) InstrumentReturn(instrumentID string, currentValue float64) (*XIRRResponse, error) {
	logger := log.With().
		Str("instrument_id", instrumentID).
		Str("service", "returns").
		Logger()

	txs, err := s.db.GetTransactionsByInstrument(instrumentID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch transactions")
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrNoCashflows
	}

	amounts := make([]float64, 0, len(txs)+1)
	dates := make([]time.Time, 0, len(txs)+1)
	for _, tx := range txs {
		switch tx.Kind {
		case types.KindBuy:
			amounts = append(amounts, -(tx.Quantity*tx.UnitPrice + tx.Commission))
		case types.KindSell:
			amounts = append(amounts, tx.Quantity*tx.UnitPrice-tx.Commission)
		default:
			continue
		}
		dates = append(dates, tx.Date)
	}
	if currentValue > 0 {
		amounts = append(amounts, currentValue)
		dates = append(dates, time.Now())
	}

	logger.Debug().Int("cashflows", len(amounts)).Msg("built cashflow stream")

	rate, ok, err := Solve(amounts, dates)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Info().Msg("solver found no solution for instrument stream")
	}

	resp := &XIRRResponse{
		Converged: ok,
		Cashflows: len(amounts),
		Timestamp: time.Now(),
	}
	if ok {
		resp.Rate = &rate
	}
	return resp, nil
}

// GinHandlers contains HTTP handlers for return computation endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// SolveHandler handles POST requests to solve an ad-hoc cashflow stream
func (h *GinHandlers) SolveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req XIRRRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		result, err := h.service.SolveStream(req)
		if errors.Is(err, ErrInvalidStream) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, result, err)
	}
}

// InstrumentReturnHandler handles GET requests for an instrument's
// money-weighted return
// URL parameter: instrument_id; optional query parameter: current_value
func (h *GinHandlers) InstrumentReturnHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		instrumentID := c.Param("instrument_id")
		if instrumentID == "" {
			response.BadRequest(c, "Instrument ID is required")
			return
		}

		var currentValue float64
		if raw := c.Query("current_value"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed < 0 {
				response.BadRequest(c, "current_value must be a non-negative number")
				return
			}
			currentValue = parsed
		}

		result, err := h.service.InstrumentReturn(instrumentID, currentValue)
		if errors.Is(err, ErrNoCashflows) {
			response.NotFound(c, err.Error())
			return
		}
		if errors.Is(err, ErrInvalidStream) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, result, err)
	}
}
