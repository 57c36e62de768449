package positions

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patriciomferrari/finanzas-api/internal/auth"
	"github.com/patriciomferrari/finanzas-api/internal/types"
	"github.com/patriciomferrari/finanzas-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrNoTransactions = errors.New("no transactions for instrument")

// Service orchestrates the FIFO matcher: it loads an instrument's
// transactions, runs the pure matcher and persists the resulting snapshot.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// RecordTransaction validates and stores a BUY/SELL transaction.
func (s *Service) RecordTransaction(tx *types.Transaction) error {
	if err := validateTransaction(tx); err != nil {
		return err
	}
	if tx.Currency != types.CurrencyARS && tx.Currency != types.CurrencyUSD {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidTransaction, tx.Currency)
	}

	tx.TransactionID = "TXN_" + uuid.New().String()
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = time.Now()

	return s.db.CreateTransaction(tx)
}

// ComputePositions recomputes and replaces the stored position snapshot for
// one instrument. Independent instruments can be recomputed concurrently;
// within one instrument processing is strictly sequential.
func (s *Service) ComputePositions(instrumentID string) (*types.PositionSnapshotResponse, error) {
	logger := log.With().
		Str("instrument_id", instrumentID).
		Str("service", "positions").
		Logger()

	logger.Info().Msg("starting position computation")

	txs, err := s.db.GetTransactionsByInstrument(instrumentID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch transactions")
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	logger.Debug().Int("transactions", len(txs)).Msg("fetched transactions")

	result, err := Match(txs)
	if err != nil {
		logger.Error().Err(err).Msg("matching failed")
		return nil, err
	}

	if result.UnmatchedQuantity > 0 {
		logger.Warn().
			Float64("unmatched_quantity", result.UnmatchedQuantity).
			Msg("oversell detected, sales partially filled")
	}

	snapshot := &PositionSnapshot{
		SnapshotID:        "POS_" + uuid.New().String(),
		InstrumentID:      instrumentID,
		TotalRealizedGain: result.TotalRealizedGain,
		UnmatchedQuantity: result.UnmatchedQuantity,
		ComputedAt:        time.Now(),
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	realized := make([]RealizedGainRecord, 0, len(result.RealizedGains))
	for i, g := range result.RealizedGains {
		realized = append(realized, RealizedGainRecord{
			InstrumentID:          instrumentID,
			Sequence:              i,
			SaleDate:              g.SaleDate,
			QuantitySold:          g.QuantitySold,
			SellUnitPrice:         g.SellUnitPrice,
			SellCommission:        g.SellCommission,
			AvgCostBasisPrice:     g.AvgCostBasisPrice,
			ProratedBuyCommission: g.ProratedBuyCommission,
			GainAmount:            g.GainAmount,
			GainPercent:           g.GainPercent,
			Currency:              g.Currency,
			UnmatchedQuantity:     g.UnmatchedQuantity,
		})
	}

	open := make([]OpenPositionRecord, 0, len(result.OpenPositions))
	for i, p := range result.OpenPositions {
		open = append(open, OpenPositionRecord{
			InstrumentID:        instrumentID,
			Sequence:            i,
			OriginDate:          p.OriginDate,
			Quantity:            p.Quantity,
			UnitPrice:           p.UnitPrice,
			ProratedCommission:  p.ProratedCommission,
			Currency:            p.Currency,
			OriginalLotQuantity: p.OriginalLotQuantity,
		})
	}

	if err := s.db.ReplaceSnapshot(instrumentID, snapshot, realized, open); err != nil {
		logger.Error().Err(err).Msg("failed to replace position snapshot")
		return nil, err
	}

	logger.Info().
		Str("snapshot_id", snapshot.SnapshotID).
		Float64("total_realized_gain", snapshot.TotalRealizedGain).
		Int("realized_events", len(realized)).
		Int("open_positions", len(open)).
		Msg("position computation completed")

	return &types.PositionSnapshotResponse{
		SnapshotID:        snapshot.SnapshotID,
		InstrumentID:      instrumentID,
		TotalRealizedGain: snapshot.TotalRealizedGain,
		RealizedCount:     len(realized),
		OpenCount:         len(open),
		UnmatchedQuantity: snapshot.UnmatchedQuantity,
		ComputedAt:        snapshot.ComputedAt,
	}, nil
}

// GetPositions returns the latest stored snapshot with its event rows.
func (s *Service) GetPositions(instrumentID string) (*PositionReport, error) {
	snapshot, err := s.db.GetSnapshot(instrumentID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}

	realized, err := s.db.GetRealizedGains(instrumentID)
	if err != nil {
		return nil, err
	}
	open, err := s.db.GetOpenPositions(instrumentID)
	if err != nil {
		return nil, err
	}

	return &PositionReport{
		Snapshot:      snapshot,
		RealizedGains: realized,
		OpenPositions: open,
	}, nil
}

// GinHandlers contains HTTP handlers for position endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateTransactionHandler handles POST requests to record transactions
// Requires a valid JWT token; the client ID is taken from the token claims
func (h *GinHandlers) CreateTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		clientID := auth.GetClientID(claims)
		if clientID == "" {
			response.Unauthorized(c, "Invalid client ID in token")
			return
		}

		var tx types.Transaction
		if err := c.ShouldBindJSON(&tx); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		tx.ClientID = clientID

		if err := h.service.RecordTransaction(&tx); err != nil {
			if errors.Is(err, ErrInvalidTransaction) {
				response.BadRequest(c, err.Error())
				return
			}
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, tx)
	}
}

// GetPositionsHandler handles GET requests for an instrument's latest
// position snapshot
// URL parameter: instrument_id
func (h *GinHandlers) GetPositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		instrumentID := c.Param("instrument_id")
		if instrumentID == "" {
			response.BadRequest(c, "Instrument ID is required")
			return
		}

		report, err := h.service.GetPositions(instrumentID)
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		if report == nil {
			response.NotFound(c, "No position snapshot for instrument")
			return
		}

		response.Success(c, report)
	}
}

// ComputePositionsHandler handles POST requests to recompute positions
// Requires internal authentication
// URL parameter: instrument_id
func (h *GinHandlers) ComputePositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		instrumentID := c.Param("instrument_id")

		snapshot, err := h.service.ComputePositions(instrumentID)
		if errors.Is(err, ErrNoTransactions) {
			response.NotFound(c, err.Error())
			return
		}
		if errors.Is(err, ErrInvalidTransaction) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, snapshot, err)
	}
}
