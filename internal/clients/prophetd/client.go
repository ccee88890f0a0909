// Package prophetd is an HTTP client for the time-series forecasting
// microservice.
package prophetd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client is an HTTP client for the forecasting microservice.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new forecasting service client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second, // model fitting can take a while
		},
		log: log.With().Str("client", "prophetd").Logger(),
	}
}

// ForecastRequest carries the observed history and the requested horizon.
type ForecastRequest struct {
	Symbol  string    `json:"symbol"`
	Dates   []string  `json:"dates"`
	Closes  []float64 `json:"closes"`
	Horizon int       `json:"horizon_days"`
}

// ForecastResult holds the fitted projection over the horizon.
type ForecastResult struct {
	Dates     []string  `json:"dates"`
	Yhat      []float64 `json:"yhat"`
	YhatUpper []float64 `json:"yhat_upper"`
	YhatLower []float64 `json:"yhat_lower"`
}

// serviceResponse is the standard response envelope from the microservice.
type serviceResponse struct {
	Success   bool                   `json:"success"`
	Data      map[string]interface{} `json:"data"`
	Error     *string                `json:"error"`
	Timestamp string                 `json:"timestamp"`
}

// Forecast fits a model on the supplied history and returns the projection.
func (c *Client) Forecast(req ForecastRequest) (*ForecastResult, error) {
	resp, err := c.post("/forecast", req)
	if err != nil {
		return nil, err
	}

	var result ForecastResult
	if err := c.parseData(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse forecast result: %w", err)
	}

	return &result, nil
}

// Health checks whether the service is reachable.
func (c *Client) Health() error {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("forecast service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("forecast service returned status %d", resp.StatusCode)
	}
	return nil
}

// post sends a POST request to the microservice.
func (c *Client) post(endpoint string, request interface{}) (*serviceResponse, error) {
	url := c.baseURL + endpoint

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpResp, err := c.client.Post(url, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned status %d: %s", httpResp.StatusCode, string(body))
	}

	var resp serviceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse service response: %w", err)
	}

	if !resp.Success {
		msg := "unknown error"
		if resp.Error != nil {
			msg = *resp.Error
		}
		return nil, fmt.Errorf("forecast service error: %s", msg)
	}

	return &resp, nil
}

// parseData remarshals the loosely-typed data payload into a typed struct.
func (c *Client) parseData(data interface{}, dest interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, dest)
}
