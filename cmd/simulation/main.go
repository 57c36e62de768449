package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patriciomferrari/finanzas-api/internal/auth"
	"github.com/patriciomferrari/finanzas-api/internal/database"
	"github.com/patriciomferrari/finanzas-api/internal/indicators"
	"github.com/patriciomferrari/finanzas-api/internal/positions"
	"github.com/patriciomferrari/finanzas-api/internal/rentals"
	"github.com/patriciomferrari/finanzas-api/internal/returns"
	"github.com/patriciomferrari/finanzas-api/internal/types"
	"github.com/patriciomferrari/finanzas-api/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minTransactions = 20
	maxTransactions = 120
	numWorkers      = 5
	numContracts    = 8
	indicatorMonths = 24
	serverAddress   = "http://localhost:8080"
)

var (
	instruments = []string{"AL30", "GD30", "YPFD", "GGAL", "SPY"}
	kinds       = []string{types.KindBuy, types.KindSell}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the accounting API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":        {name: "Authentication"},
			"indicator":   {name: "Record Indicator"},
			"transaction": {name: "Record Transaction"},
			"compute":     {name: "Compute Positions"},
			"positions":   {name: "Get Positions"},
			"contract":    {name: "Create Contract"},
			"schedule":    {name: "Get Schedule"},
			"xirr":        {name: "Instrument XIRR"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    auth.DemoAPIKey,
		"api_secret": auth.DemoAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// post sends an authenticated POST request and decodes the standard
// response envelope into out (when out is non-nil)
func (sc *simulationClient) post(statKey, path string, payload interface{}, out interface{}) error {
	start := time.Now()
	defer func() {
		sc.stats[statKey].addDuration(time.Since(start))
	}()

	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(body)
	}

	req, err := http.NewRequest("POST", sc.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats[statKey].failures++
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("POST response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		sc.stats[statKey].failures++
		return fmt.Errorf("POST %s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

// get sends an authenticated GET request and decodes the standard response
// envelope into out (when out is non-nil)
func (sc *simulationClient) get(statKey, path string, out interface{}) error {
	start := time.Now()
	defer func() {
		sc.stats[statKey].addDuration(time.Since(start))
	}()

	req, err := http.NewRequest("GET", sc.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))

	resp, err := sc.client.Do(req)
	if err != nil {
		sc.stats[statKey].failures++
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("GET response")

	if resp.StatusCode != http.StatusOK {
		sc.stats[statKey].failures++
		return fmt.Errorf("GET %s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

// seedIndicators posts a couple of years of inflation and exchange rate
// observations so schedule generation has data to work with
func (sc *simulationClient) seedIndicators() error {
	start := time.Date(time.Now().Year()-2, time.Now().Month(), 1, 0, 0, 0, 0, time.UTC)
	fxRate := 350.0

	for m := 0; m < indicatorMonths; m++ {
		date := start.AddDate(0, m, 0)

		ipc := indicators.ObservationRequest{
			Type:  indicators.TypeInflation,
			Date:  date,
			Value: 0.02 + rand.Float64()*0.08, // 2% to 10% monthly
		}
		if err := sc.post("indicator", "/api/v1/indicators", ipc, nil); err != nil {
			return err
		}

		// The peso only ever goes one way
		fxRate *= 1 + 0.01 + rand.Float64()*0.09
		fx := indicators.ObservationRequest{
			Type:  indicators.TypeExchange,
			Date:  date.AddDate(0, 0, rand.Intn(28)),
			Value: fxRate,
		}
		if err := sc.post("indicator", "/api/v1/indicators", fx, nil); err != nil {
			return err
		}
	}
	return nil
}

// recordTransactions generates and submits random transactions
// Runs as a worker goroutine
func recordTransactions(workerID, count int, sc *simulationClient, wg *sync.WaitGroup) {
	defer wg.Done()

	base := time.Date(time.Now().Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		tx := types.Transaction{
			InstrumentID: instruments[rand.Intn(len(instruments))],
			Kind:         kinds[rand.Intn(len(kinds))],
			Date:         base.AddDate(0, 0, rand.Intn(365)),
			Quantity:     float64(rand.Intn(100) + 1),
			UnitPrice:    float64(rand.Intn(5000) + 100),
			Commission:   float64(rand.Intn(50)),
			Currency:     types.CurrencyARS,
		}

		var result struct {
			Data types.Transaction `json:"data"`
		}
		if err := sc.post("transaction", "/api/v1/transactions", tx, &result); err != nil {
			log.Error().Err(err).
				Int("worker_id", workerID).
				Str("instrument_id", tx.InstrumentID).
				Msg("Failed to record transaction")
			continue
		}

		log.Info().
			Int("worker_id", workerID).
			Str("transaction_id", result.Data.TransactionID).
			Str("instrument_id", tx.InstrumentID).
			Str("kind", tx.Kind).
			Float64("quantity", tx.Quantity).
			Msg("Transaction recorded")

		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
}

// main runs the accounting simulation
// It starts a local API server, seeds indicators and transactions, then
// exercises every engine endpoint and prints statistics
func main() {
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	if err := simClient.seedIndicators(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed indicators")
	}
	log.Info().Int("months", indicatorMonths).Msg("Indicators seeded")

	targetTransactions := rand.Intn(maxTransactions-minTransactions) + minTransactions
	log.Info().Int("target_transactions", targetTransactions).Msg("Starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go recordTransactions(i, targetTransactions/numWorkers, simClient, &wg)
	}
	wg.Wait()

	stats := struct {
		ComputedInstruments int
		FailedComputes      int
		Contracts           int
		FailedContracts     int
		Schedules           int
		SolvedReturns       int
		NoSolution          int
		TotalRealizedGain   float64
		StartTime           time.Time
	}{
		StartTime: time.Now(),
	}

	// Recompute every instrument's snapshot and read it back
	for _, instrumentID := range instruments {
		var computed struct {
			Data types.PositionSnapshotResponse `json:"data"`
		}
		if err := simClient.post("compute",
			fmt.Sprintf("/api/v1/internal/positions/%s/compute", instrumentID), nil, &computed); err != nil {
			log.Error().Err(err).Str("instrument_id", instrumentID).Msg("Failed to compute positions")
			stats.FailedComputes++
			continue
		}
		stats.ComputedInstruments++
		stats.TotalRealizedGain += computed.Data.TotalRealizedGain

		log.Info().
			Str("instrument_id", instrumentID).
			Str("snapshot_id", computed.Data.SnapshotID).
			Float64("total_realized_gain", computed.Data.TotalRealizedGain).
			Float64("unmatched_quantity", computed.Data.UnmatchedQuantity).
			Msg("Positions computed")

		if err := simClient.get("positions",
			fmt.Sprintf("/api/v1/positions/%s", instrumentID), nil); err != nil {
			log.Error().Err(err).Str("instrument_id", instrumentID).Msg("Failed to fetch positions")
		}

		var xirr struct {
			Data returns.XIRRResponse `json:"data"`
		}
		currentValue := float64(rand.Intn(500000) + 100000)
		if err := simClient.get("xirr",
			fmt.Sprintf("/api/v1/returns/instrument/%s?current_value=%.2f", instrumentID, currentValue), &xirr); err != nil {
			log.Error().Err(err).Str("instrument_id", instrumentID).Msg("Failed to compute return")
			continue
		}
		if xirr.Data.Converged {
			stats.SolvedReturns++
			log.Info().
				Str("instrument_id", instrumentID).
				Float64("rate", *xirr.Data.Rate).
				Msg("Instrument return solved")
		} else {
			stats.NoSolution++
			log.Info().Str("instrument_id", instrumentID).Msg("Instrument return has no solution")
		}
	}

	// Create rental contracts and fetch their schedules
	currencies := []string{types.CurrencyARS, types.CurrencyARS, types.CurrencyUSD}
	modes := []string{types.AdjustmentIndexed, types.AdjustmentFixed}
	for i := 0; i < numContracts; i++ {
		req := rentals.ContractRequest{
			Description:               fmt.Sprintf("Departamento %d", i+1),
			StartDate:                 time.Date(time.Now().Year()-1, time.Month(rand.Intn(12)+1), 1, 0, 0, 0, 0, time.UTC),
			DurationMonths:            12 + rand.Intn(24),
			InitialAmount:             float64(rand.Intn(400000) + 100000),
			Currency:                  currencies[rand.Intn(len(currencies))],
			AdjustmentMode:            modes[rand.Intn(len(modes))],
			AdjustmentFrequencyMonths: []int{3, 4, 6}[rand.Intn(3)],
		}
		if req.Currency == types.CurrencyUSD {
			req.InitialAmount = float64(rand.Intn(900) + 100)
		}

		var created struct {
			Data types.Contract `json:"data"`
		}
		if err := simClient.post("contract", "/api/v1/contracts", req, &created); err != nil {
			log.Error().Err(err).Msg("Failed to create contract")
			stats.FailedContracts++
			continue
		}
		stats.Contracts++

		log.Info().
			Str("contract_id", created.Data.ContractID).
			Str("currency", created.Data.Currency).
			Str("mode", created.Data.AdjustmentMode).
			Int("months", created.Data.DurationMonths).
			Msg("Contract created")

		var schedule struct {
			Data []rentals.CashflowEntry `json:"data"`
		}
		if err := simClient.get("schedule",
			fmt.Sprintf("/api/v1/contracts/%s/schedule", created.Data.ContractID), &schedule); err != nil {
			log.Error().Err(err).Str("contract_id", created.Data.ContractID).Msg("Failed to fetch schedule")
			continue
		}
		stats.Schedules++

		log.Info().
			Str("contract_id", created.Data.ContractID).
			Int("entries", len(schedule.Data)).
			Msg("Schedule fetched")
	}

	// Print summary
	duration := time.Since(stats.StartTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("ACCOUNTING SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
Position Statistics
-------------------
Instruments Computed: %d
Failed Computes:      %d
Total Realized Gain:  $%.2f
Returns Solved:       %d
No Solution:          %d

Contract Statistics
-------------------
Contracts Created:    %d
Failed Contracts:     %d
Schedules Fetched:    %d
Duration:             %v
`, stats.ComputedInstruments, stats.FailedComputes, stats.TotalRealizedGain,
		stats.SolvedReturns, stats.NoSolution,
		stats.Contracts, stats.FailedContracts, stats.Schedules,
		duration.Round(time.Millisecond))

	fmt.Println(strings.Repeat("=", 80))

	simClient.printPerformanceStats()
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// startServer initializes and starts the accounting API server
// Sets up all required services, handlers and routes
func startServer() error {
	db, err := database.NewDatabase()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	authService := auth.NewService(middleware.JWTSecret())
	authService.RegisterAPICredentials(auth.DemoAPIKey, auth.DemoAPISecret)

	indicatorService := indicators.NewService(db)
	positionService := positions.NewService(db)
	rentalService := rentals.NewService(db, indicatorService)
	returnService := returns.NewService(db)

	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	indicatorHandlers := indicators.NewGinHandlers(indicatorService)
	positionHandlers := positions.NewGinHandlers(positionService)
	rentalHandlers := rentals.NewGinHandlers(rentalService)
	returnHandlers := returns.NewGinHandlers(returnService)

	setupRoutes(router, authHandlers, indicatorHandlers, positionHandlers, rentalHandlers, returnHandlers)

	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	indicatorHandlers *indicators.GinHandlers,
	positionHandlers *positions.GinHandlers,
	rentalHandlers *rentals.GinHandlers,
	returnHandlers *returns.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Portfolio routes
		portfolio := v1.Group("")
		portfolio.Use(middleware.JWTAuth())
		{
			portfolio.POST("/transactions", positionHandlers.CreateTransactionHandler())
			portfolio.GET("/positions/:instrument_id", positionHandlers.GetPositionsHandler())
			portfolio.POST("/contracts", rentalHandlers.CreateContractHandler())
			portfolio.GET("/contracts/:contract_id/schedule", rentalHandlers.GetScheduleHandler())
			portfolio.POST("/indicators", indicatorHandlers.CreateObservationHandler())
			portfolio.POST("/returns/xirr", returnHandlers.SolveHandler())
			portfolio.GET("/returns/instrument/:instrument_id", returnHandlers.InstrumentReturnHandler())
		}

		// Internal routes
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth())
		{
			internal.POST("/positions/:instrument_id/compute", positionHandlers.ComputePositionsHandler())
			internal.POST("/schedules/:contract_id/regenerate", rentalHandlers.RegenerateScheduleHandler())
		}
	}
}
