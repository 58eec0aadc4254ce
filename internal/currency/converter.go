package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// Converter maintains a cached exchange rate table relative to a base
// currency and converts amounts between currency codes. The table starts
// empty: until the first refresh succeeds, Convert is a passthrough. The same
// fail-open rule applies to codes the provider does not list, which keeps
// ordering available through provider outages at the cost of price
// distortion for unlisted currencies.
type Converter struct {
	providerURL string
	base        string
	interval    time.Duration
	client      *http.Client
	logger      *zap.Logger

	mu    sync.RWMutex
	rates map[string]float64
}

// NewConverter creates a converter with an empty rate table
func NewConverter(providerURL, base string, interval time.Duration) *Converter {
	return &Converter{
		providerURL: providerURL,
		base:        base,
		interval:    interval,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      util.GetLogger(),
	}
}

// rateResponse matches the open.er-api.com payload shape
type rateResponse struct {
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// Round2 rounds to 2 decimal places, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Convert converts an amount between currency codes via the base currency,
// rounded to 2 decimal places. Returns the amount unchanged when either code
// is missing from the current table.
func (c *Converter) Convert(amount float64, from, to string) float64 {
	if from == to {
		return Round2(amount)
	}

	c.mu.RLock()
	fromRate, fromOK := c.rates[from]
	toRate, toOK := c.rates[to]
	c.mu.RUnlock()

	if !fromOK || !toOK || fromRate == 0 {
		return Round2(amount)
	}

	inBase := amount / fromRate
	return Round2(inBase * toRate)
}

// Rates returns the base currency and a snapshot copy of the rate table
func (c *Converter) Rates() (string, map[string]float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]float64, len(c.rates))
	for code, rate := range c.rates {
		snapshot[code] = rate
	}
	return c.base, snapshot
}

// SetRates replaces the rate table. Exposed for tests and manual overrides.
func (c *Converter) SetRates(rates map[string]float64) {
	table := make(map[string]float64, len(rates))
	for code, rate := range rates {
		table[code] = rate
	}

	c.mu.Lock()
	c.rates = table
	c.mu.Unlock()
}

// Refresh fetches a full rate table from the provider and swaps it in
// atomically. On any failure the previous table stays in place.
func (c *Converter) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.providerURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rate provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode rate table: %w", err)
	}
	if len(payload.Rates) == 0 {
		return fmt.Errorf("rate provider returned empty table")
	}

	c.SetRates(payload.Rates)

	c.logger.Info("Exchange rates refreshed",
		zap.String("base", c.base),
		zap.Int("currencies", len(payload.Rates)))
	return nil
}

// Start refreshes once immediately, then on the configured interval until the
// context is cancelled. Refresh failures are logged, never surfaced.
func (c *Converter) Start(ctx context.Context) {
	c.refreshLogged(ctx)

	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.refreshLogged(ctx)
			}
		}
	}()
}

func (c *Converter) refreshLogged(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		util.RateRefreshTotal.WithLabelValues("error").Inc()
		c.logger.Warn("Rate refresh failed, keeping previous table", zap.Error(err))
		return
	}
	util.RateRefreshTotal.WithLabelValues("success").Inc()
}
