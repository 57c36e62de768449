package indicators

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/patriciomferrari/finanzas-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrUnknownType = errors.New("unknown indicator type")

// Service loads indicator series for the accounting engines. Series are
// cached briefly so a batch run across many contracts hits the database once
// per indicator type.
type Service struct {
	db    *Database
	cache *gocache.Cache
}

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

// LoadSeries returns the full series for an indicator type, served from cache
// when possible.
func (s *Service) LoadSeries(indicatorType string) (Series, error) {
	if indicatorType != TypeInflation && indicatorType != TypeExchange {
		return Series{}, fmt.Errorf("%w: %s", ErrUnknownType, indicatorType)
	}

	if cached, found := s.cache.Get(indicatorType); found {
		return cached.(Series), nil
	}

	points, err := s.db.GetSeries(indicatorType)
	if err != nil {
		return Series{}, err
	}

	series := NewSeries(points)
	s.cache.Set(indicatorType, series, gocache.DefaultExpiration)

	log.Debug().
		Str("service", "indicators").
		Str("type", indicatorType).
		Int("observations", series.Len()).
		Msg("loaded indicator series")

	return series, nil
}

// RecordObservation stores a new observation and drops the cached series so
// the next load sees it.
func (s *Service) RecordObservation(req ObservationRequest) (*Indicator, error) {
	if req.Type != TypeInflation && req.Type != TypeExchange {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, req.Type)
	}

	obs := &Indicator{
		Type:      req.Type,
		Date:      req.Date.UTC(),
		Value:     req.Value,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.db.SaveObservation(obs); err != nil {
		return nil, err
	}

	s.cache.Delete(req.Type)

	log.Info().
		Str("service", "indicators").
		Str("type", obs.Type).
		Time("date", obs.Date).
		Float64("value", obs.Value).
		Msg("recorded indicator observation")

	return obs, nil
}

// GinHandlers contains HTTP handlers for indicator endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateObservationHandler handles POST requests to append an indicator
// observation. Re-posting an existing (type, date) pair overwrites the value.
func (h *GinHandlers) CreateObservationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ObservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		obs, err := h.service.RecordObservation(req)
		if errors.Is(err, ErrUnknownType) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, obs, err)
	}
}
