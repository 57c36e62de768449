package indicators

import (
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Indicator{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewService(db)
}

func TestRecordAndLoadSeries(t *testing.T) {
	s := testService(t)

	for i, value := range []float64{0.02, 0.03, 0.04} {
		_, err := s.RecordObservation(ObservationRequest{
			Type:  TypeInflation,
			Date:  d(2024, 1, 1).AddDate(0, i, 0),
			Value: value,
		})
		if err != nil {
			t.Fatalf("RecordObservation returned error: %v", err)
		}
	}

	series, err := s.LoadSeries(TypeInflation)
	if err != nil {
		t.Fatalf("LoadSeries returned error: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 observations, got %d", series.Len())
	}
	if rate, ok := series.RateForMonth(d(2024, 2, 15)); !ok || rate != 0.03 {
		t.Errorf("expected February rate 0.03, got %f (ok=%v)", rate, ok)
	}
}

func TestRecordObservationOverwrites(t *testing.T) {
	s := testService(t)

	req := ObservationRequest{Type: TypeExchange, Date: d(2024, 1, 10), Value: 800}
	if _, err := s.RecordObservation(req); err != nil {
		t.Fatalf("RecordObservation returned error: %v", err)
	}

	// Same (type, date) pair must replace the value, not duplicate the row.
	req.Value = 820
	if _, err := s.RecordObservation(req); err != nil {
		t.Fatalf("RecordObservation returned error: %v", err)
	}

	series, err := s.LoadSeries(TypeExchange)
	if err != nil {
		t.Fatalf("LoadSeries returned error: %v", err)
	}
	if series.Len() != 1 {
		t.Fatalf("expected 1 observation after overwrite, got %d", series.Len())
	}
	if v, _ := series.ValueAsOf(d(2024, 1, 10)); v != 820 {
		t.Errorf("expected overwritten value 820, got %f", v)
	}
}

func TestRecordObservationInvalidatesCache(t *testing.T) {
	s := testService(t)

	if _, err := s.RecordObservation(ObservationRequest{
		Type: TypeExchange, Date: d(2024, 1, 1), Value: 800,
	}); err != nil {
		t.Fatalf("RecordObservation returned error: %v", err)
	}

	// Prime the cache.
	if _, err := s.LoadSeries(TypeExchange); err != nil {
		t.Fatalf("LoadSeries returned error: %v", err)
	}

	if _, err := s.RecordObservation(ObservationRequest{
		Type: TypeExchange, Date: d(2024, 2, 1), Value: 850,
	}); err != nil {
		t.Fatalf("RecordObservation returned error: %v", err)
	}

	series, err := s.LoadSeries(TypeExchange)
	if err != nil {
		t.Fatalf("LoadSeries returned error: %v", err)
	}
	if series.Len() != 2 {
		t.Errorf("expected fresh series with 2 observations, got %d", series.Len())
	}
}

func TestUnknownIndicatorType(t *testing.T) {
	s := testService(t)

	if _, err := s.LoadSeries("MERVAL"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType from LoadSeries, got %v", err)
	}
	if _, err := s.RecordObservation(ObservationRequest{
		Type: "MERVAL", Date: d(2024, 1, 1), Value: 1,
	}); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType from RecordObservation, got %v", err)
	}
}
