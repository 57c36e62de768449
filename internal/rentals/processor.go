package rentals

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor periodically regenerates the schedule of every active contract,
// picking up indicator observations that arrived since the last run.
// Contracts share no state, so failures are per-contract and non-fatal.
type Processor struct {
	service      *Service
	processDelay time.Duration // Time between regeneration passes
}

func NewProcessor(service *Service) *Processor {
	return &Processor{
		service:      service,
		processDelay: 6 * time.Hour,
	}
}

// Start begins the schedule regeneration loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "schedule_processor").Logger()
	logger.Info().Msg("starting schedule processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down schedule processor")
			return
		case <-ticker.C:
			if err := p.regenerateActiveContracts(); err != nil {
				logger.Error().Err(err).Msg("failed to regenerate contract schedules")
			}
		}
	}
}

func (p *Processor) regenerateActiveContracts() error {
	logger := log.With().Str("component", "schedule_processor").Logger()

	contracts, err := p.service.GetDB().GetActiveContracts()
	if err != nil {
		return err
	}

	logger.Info().Int("active_count", len(contracts)).Msg("regenerating active contract schedules")

	for _, contract := range contracts {
		if _, err := p.service.RegenerateSchedule(contract.ContractID); err != nil {
			logger.Error().
				Err(err).
				Str("contract_id", contract.ContractID).
				Msg("failed to regenerate schedule")
			continue
		}
	}

	return nil
}
