package rentals

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patriciomferrari/finanzas-api/internal/auth"
	"github.com/patriciomferrari/finanzas-api/internal/indicators"
	"github.com/patriciomferrari/finanzas-api/internal/types"
	"github.com/patriciomferrari/finanzas-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrContractNotFound = errors.New("contract not found")

// Service orchestrates the cash-flow generator: it loads a contract plus the
// indicator series, runs the pure generator and replaces the persisted
// schedule.
type Service struct {
	db         *Database
	indicators *indicators.Service
}

func NewService(gormDB *gorm.DB, indicatorService *indicators.Service) *Service {
	return &Service{
		db:         NewDatabase(gormDB),
		indicators: indicatorService,
	}
}

// CreateContract validates and stores a rental contract, then generates its
// initial schedule.
func (s *Service) CreateContract(clientID string, req ContractRequest) (*types.Contract, error) {
	contract := &types.Contract{
		ContractID:                "CTR_" + uuid.New().String(),
		ClientID:                  clientID,
		Description:               req.Description,
		StartDate:                 req.StartDate.UTC(),
		DurationMonths:            req.DurationMonths,
		InitialAmount:             req.InitialAmount,
		Currency:                  req.Currency,
		AdjustmentMode:            req.AdjustmentMode,
		AdjustmentFrequencyMonths: req.AdjustmentFrequencyMonths,
		Active:                    true,
		CreatedAt:                 time.Now(),
		UpdatedAt:                 time.Now(),
	}

	if err := validateContract(contract); err != nil {
		return nil, err
	}

	if err := s.db.CreateContract(contract); err != nil {
		return nil, err
	}

	if _, err := s.RegenerateSchedule(contract.ContractID); err != nil {
		return nil, fmt.Errorf("failed to generate initial schedule: %w", err)
	}

	return contract, nil
}

// RegenerateSchedule rebuilds a contract's schedule from the current
// indicator series and replaces the stored one. Regenerating with unchanged
// inputs yields an identical schedule.
func (s *Service) RegenerateSchedule(contractID string) (*types.ScheduleResponse, error) {
	logger := log.With().
		Str("contract_id", contractID).
		Str("service", "rentals").
		Logger()

	logger.Info().Msg("starting schedule regeneration")

	contract, err := s.db.GetContract(contractID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch contract")
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}

	inflation, err := s.indicators.LoadSeries(indicators.TypeInflation)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load inflation series")
		return nil, err
	}
	fx, err := s.indicators.LoadSeries(indicators.TypeExchange)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load exchange series")
		return nil, err
	}

	logger.Debug().
		Int("inflation_points", inflation.Len()).
		Int("fx_points", fx.Len()).
		Msg("loaded indicator series")

	entries, err := Generate(contract, inflation, fx)
	if err != nil {
		logger.Error().Err(err).Msg("schedule generation failed")
		return nil, err
	}

	if err := s.db.ReplaceSchedule(contractID, entries); err != nil {
		logger.Error().Err(err).Msg("failed to replace schedule")
		return nil, err
	}

	logger.Info().
		Int("months", len(entries)).
		Msg("schedule regeneration completed")

	return &types.ScheduleResponse{
		ContractID:  contractID,
		Months:      len(entries),
		GeneratedAt: time.Now(),
	}, nil
}

// GetSchedule returns a contract's current schedule.
func (s *Service) GetSchedule(contractID string) ([]CashflowEntry, error) {
	contract, err := s.db.GetContract(contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	return s.db.GetSchedule(contractID)
}

// GetDB exposes the database wrapper for the background processor.
func (s *Service) GetDB() *Database {
	return s.db
}

// GinHandlers contains HTTP handlers for rental contract endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateContractHandler handles POST requests to create rental contracts
// Requires a valid JWT token
func (h *GinHandlers) CreateContractHandler() gin.HandlerFunc {
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

		var req ContractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		contract, err := h.service.CreateContract(clientID, req)
		if errors.Is(err, ErrInvalidContract) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, contract, err)
	}
}

// GetScheduleHandler handles GET requests for a contract's schedule
// URL parameter: contract_id
func (h *GinHandlers) GetScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		contractID := c.Param("contract_id")
		if contractID == "" {
			response.BadRequest(c, "Contract ID is required")
			return
		}

		entries, err := h.service.GetSchedule(contractID)
		if errors.Is(err, ErrContractNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.Handle(c, entries, err)
	}
}

// RegenerateScheduleHandler handles POST requests to regenerate schedules
// Requires internal authentication
// URL parameter: contract_id
func (h *GinHandlers) RegenerateScheduleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		contractID := c.Param("contract_id")

		result, err := h.service.RegenerateSchedule(contractID)
		if errors.Is(err, ErrContractNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		if errors.Is(err, ErrInvalidContract) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, result, err)
	}
}
