package rentals

import (
	"testing"

	"github.com/patriciomferrari/finanzas-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&types.Contract{}, &CashflowEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewDatabase(db)
}

func testEntries(contractID string, n int, amount float64) []CashflowEntry {
	entries := make([]CashflowEntry, n)
	for i := range entries {
		entries[i] = CashflowEntry{
			ContractID: contractID,
			MonthIndex: i,
			Date:       start.AddDate(0, i, 0),
			AmountARS:  amount,
		}
	}
	return entries
}

func TestReplaceScheduleSwapsAllRows(t *testing.T) {
	db := testDatabase(t)

	if err := db.ReplaceSchedule("CTR_a", testEntries("CTR_a", 12, 1000)); err != nil {
		t.Fatalf("failed to store schedule: %v", err)
	}
	// A second contract's schedule must be untouched by the swap.
	if err := db.ReplaceSchedule("CTR_b", testEntries("CTR_b", 6, 500)); err != nil {
		t.Fatalf("failed to store schedule: %v", err)
	}

	if err := db.ReplaceSchedule("CTR_a", testEntries("CTR_a", 10, 2000)); err != nil {
		t.Fatalf("failed to replace schedule: %v", err)
	}

	entries, err := db.GetSchedule("CTR_a")
	if err != nil {
		t.Fatalf("failed to fetch schedule: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("expected 10 entries after replacement, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.MonthIndex != i {
			t.Errorf("entry %d: expected month index %d, got %d", i, i, entry.MonthIndex)
		}
		if entry.AmountARS != 2000 {
			t.Errorf("entry %d: expected replaced amount 2000, got %f", i, entry.AmountARS)
		}
	}

	other, err := db.GetSchedule("CTR_b")
	if err != nil {
		t.Fatalf("failed to fetch schedule: %v", err)
	}
	if len(other) != 6 {
		t.Errorf("expected other contract untouched with 6 entries, got %d", len(other))
	}
}

func TestGetContractNotFound(t *testing.T) {
	db := testDatabase(t)

	contract, err := db.GetContract("CTR_missing")
	if err != nil {
		t.Fatalf("missing contract must not be an error: %v", err)
	}
	if contract != nil {
		t.Errorf("expected nil contract, got %+v", contract)
	}
}

func TestGetActiveContracts(t *testing.T) {
	db := testDatabase(t)

	active := &types.Contract{
		ContractID:     "CTR_active",
		ClientID:       "client-1",
		StartDate:      start,
		DurationMonths: 12,
		InitialAmount:  1000,
		Currency:       types.CurrencyARS,
		AdjustmentMode: types.AdjustmentFixed,
		Active:         true,
	}
	inactive := &types.Contract{
		ContractID:     "CTR_done",
		ClientID:       "client-1",
		StartDate:      start.AddDate(-2, 0, 0),
		DurationMonths: 12,
		InitialAmount:  800,
		Currency:       types.CurrencyARS,
		AdjustmentMode: types.AdjustmentFixed,
		Active:         false,
	}
	if err := db.CreateContract(active); err != nil {
		t.Fatalf("failed to create contract: %v", err)
	}
	if err := db.CreateContract(inactive); err != nil {
		t.Fatalf("failed to create contract: %v", err)
	}

	contracts, err := db.GetActiveContracts()
	if err != nil {
		t.Fatalf("failed to fetch active contracts: %v", err)
	}
	if len(contracts) != 1 {
		t.Fatalf("expected 1 active contract, got %d", len(contracts))
	}
	if contracts[0].ContractID != "CTR_active" {
		t.Errorf("expected CTR_active, got %s", contracts[0].ContractID)
	}
}
