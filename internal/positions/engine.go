package positions

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/patriciomferrari/finanzas-api/internal/types"
	"github.com/rs/zerolog/log"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

// RealizedGain is emitted once per SELL transaction that consumed at least
// one unit of inventory. The sell commission is charged in full against this
// single event; the buy commission is prorated across the consumed lots.
type RealizedGain struct {
	SaleDate              time.Time `json:"sale_date"`
	QuantitySold          float64   `json:"quantity_sold"`
	SellUnitPrice         float64   `json:"sell_unit_price"`
	SellCommission        float64   `json:"sell_commission"`
	AvgCostBasisPrice     float64   `json:"avg_cost_basis_price"`
	ProratedBuyCommission float64   `json:"prorated_buy_commission"`
	GainAmount            float64   `json:"gain_amount"`
	GainPercent           float64   `json:"gain_percent"`
	Currency              string    `json:"currency"`
	// UnmatchedQuantity is the portion of the sale that found no inventory.
	// An oversell is tolerated as a partial fill, never silently dropped.
	UnmatchedQuantity float64 `json:"unmatched_quantity"`
}

// OpenPosition describes a lot (or lot remainder) still held after every
// transaction has been processed.
type OpenPosition struct {
	OriginDate          time.Time `json:"origin_date"`
	Quantity            float64   `json:"quantity"`
	UnitPrice           float64   `json:"unit_price"`
	ProratedCommission  float64   `json:"prorated_commission"`
	Currency            string    `json:"currency"`
	OriginalLotQuantity float64   `json:"original_lot_quantity"`
}

// MatchResult is the full outcome of matching one instrument's transactions.
type MatchResult struct {
	RealizedGains     []RealizedGain `json:"realized_gains"`
	OpenPositions     []OpenPosition `json:"open_positions"`
	TotalRealizedGain float64        `json:"total_realized_gain"`
	// UnmatchedQuantity sums the oversold units across all sales.
	UnmatchedQuantity float64 `json:"unmatched_quantity"`
}

// lot is a purchase batch held in the FIFO inventory while matching.
type lot struct {
	originDate       time.Time
	originalQuantity float64
	remaining        float64
	unitPrice        float64
	commission       float64
	currency         string
}

// Match runs FIFO lot matching over one instrument's transactions and
// returns the realized gains, the remaining open positions and the oversell
// shortfall, if any. It is a pure function of its input: the transaction
// slice is not modified and no state survives the call.
//
// Transactions are ordered by date ascending, ties broken by input order.
// That ordering decides which lot is oldest, so it is load-bearing.
func Match(transactions []types.Transaction) (*MatchResult, error) {
	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return nil, err
		}
	}

	txs := make([]types.Transaction, len(transactions))
	copy(txs, transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})

	logger := log.With().Str("service", "positions").Logger()

	var inventory []*lot
	result := &MatchResult{}

	for _, tx := range txs {
		switch tx.Kind {
		case types.KindBuy:
			inventory = append(inventory, &lot{
				originDate:       tx.Date,
				originalQuantity: tx.Quantity,
				remaining:        tx.Quantity,
				unitPrice:        tx.UnitPrice,
				commission:       tx.Commission,
				currency:         tx.Currency,
			})
			logger.Debug().
				Time("date", tx.Date).
				Float64("quantity", tx.Quantity).
				Float64("unit_price", tx.UnitPrice).
				Msg("pushed lot")

		case types.KindSell:
			remaining := tx.Quantity
			var costBasis, buyCommission, matched float64

			for remaining > 0 && len(inventory) > 0 {
				oldest := inventory[0]
				if oldest.remaining <= remaining {
					// Fully consume the oldest lot.
					costBasis += oldest.remaining * oldest.unitPrice
					buyCommission += (oldest.remaining / oldest.originalQuantity) * oldest.commission
					matched += oldest.remaining
					remaining -= oldest.remaining
					inventory = inventory[1:]
				} else {
					// Partially consume it in place.
					costBasis += remaining * oldest.unitPrice
					buyCommission += (remaining / oldest.originalQuantity) * oldest.commission
					oldest.remaining -= remaining
					matched += remaining
					remaining = 0
				}
			}

			result.UnmatchedQuantity += remaining
			if matched <= 0 {
				logger.Debug().
					Time("sale_date", tx.Date).
					Float64("quantity", tx.Quantity).
					Msg("sale matched no inventory")
				continue
			}

			totalCost := costBasis + buyCommission
			gain := (matched*tx.UnitPrice - tx.Commission) - totalCost
			gainPercent := 0.0
			if totalCost != 0 {
				gainPercent = gain / totalCost * 100
			}

			result.RealizedGains = append(result.RealizedGains, RealizedGain{
				SaleDate:              tx.Date,
				QuantitySold:          matched,
				SellUnitPrice:         tx.UnitPrice,
				SellCommission:        tx.Commission,
				AvgCostBasisPrice:     costBasis / matched,
				ProratedBuyCommission: buyCommission,
				GainAmount:            gain,
				GainPercent:           gainPercent,
				Currency:              tx.Currency,
				UnmatchedQuantity:     remaining,
			})
			result.TotalRealizedGain += gain

			logger.Debug().
				Time("sale_date", tx.Date).
				Float64("matched", matched).
				Float64("cost_basis", costBasis).
				Float64("gain", gain).
				Float64("unmatched", remaining).
				Msg("matched sale")
		}
	}

	for _, l := range inventory {
		result.OpenPositions = append(result.OpenPositions, OpenPosition{
			OriginDate:          l.originDate,
			Quantity:            l.remaining,
			UnitPrice:           l.unitPrice,
			ProratedCommission:  (l.remaining / l.originalQuantity) * l.commission,
			Currency:            l.currency,
			OriginalLotQuantity: l.originalQuantity,
		})
	}

	return result, nil
}

func validateTransaction(tx *types.Transaction) error {
	if tx.Kind != types.KindBuy && tx.Kind != types.KindSell {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, tx.Kind)
	}
	if tx.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %f", ErrInvalidTransaction, tx.Quantity)
	}
	if tx.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price must not be negative, got %f", ErrInvalidTransaction, tx.UnitPrice)
	}
	if tx.Commission < 0 {
		return fmt.Errorf("%w: commission must not be negative, got %f", ErrInvalidTransaction, tx.Commission)
	}
	return nil
}
