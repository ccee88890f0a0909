// Package sp500 fetches the S&P 500 constituent list used as the screener
// universe.
package sp500

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSourceURL serves the constituent list as plain CSV with a
// Symbol column.
const DefaultSourceURL = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/main/data/constituents.csv"

// Client fetches the index constituent list.
type Client struct {
	sourceURL string
	client    *http.Client
	log       zerolog.Logger
}

// NewClient creates a new constituents client. An empty sourceURL selects
// the default source.
func NewClient(sourceURL string, log zerolog.Logger) *Client {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	return &Client{
		sourceURL: sourceURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "sp500").Logger(),
	}
}

// Symbols returns the constituent ticker symbols. Class shares using dots
// are normalized to the dash form the quote APIs expect (BRK.B -> BRK-B).
func (c *Client) Symbols() ([]string, error) {
	resp, err := c.client.Get(c.sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch constituents: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("constituents source returned status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse constituents CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("constituents CSV is empty")
	}

	symbolCol := -1
	for i, header := range records[0] {
		if strings.EqualFold(strings.TrimSpace(header), "symbol") {
			symbolCol = i
			break
		}
	}
	if symbolCol == -1 {
		return nil, fmt.Errorf("constituents CSV has no Symbol column")
	}

	symbols := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if symbolCol >= len(row) {
			continue
		}
		symbol := strings.TrimSpace(row[symbolCol])
		if symbol == "" {
			continue
		}
		symbols = append(symbols, strings.ReplaceAll(symbol, ".", "-"))
	}

	c.log.Info().Int("count", len(symbols)).Msg("Fetched index constituents")

	return symbols, nil
}
