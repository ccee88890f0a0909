// Package yahoo provides a Yahoo Finance API client for quotes, history,
// news, analyst data and symbol search.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Client is a Yahoo Finance API client. All requests share a rate limiter
// so dashboard fan-out and the weekly screener cannot trip upstream
// throttling.
type Client struct {
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(limiter *rate.Limiter, log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// GetFundamentals fetches valuation and balance-sheet figures for a symbol.
func (c *Client) GetFundamentals(symbol string) (*Fundamentals, error) {
	info, err := c.getQuoteInfo(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote info: %w", err)
	}

	name := getString(info, "longName", "")
	if name == "" {
		name = getString(info, "shortName", symbol)
	}

	price := getFloat64(info, "regularMarketPrice")
	if price == nil {
		price = getFloat64(info, "currentPrice")
	}

	return &Fundamentals{
		Symbol:        symbol,
		Name:          name,
		PERatio:       getFloat64(info, "trailingPE"),
		PriceToBook:   getFloat64(info, "priceToBook"),
		Beta:          getFloat64(info, "beta"),
		DividendYield: getFloat64(info, "dividendYield"),
		MarketCap:     getFloat64(info, "marketCap"),
		ROE:           getFloat64(info, "returnOnEquity"),
		DebtToEquity:  getFloat64(info, "debtToEquity"),
		WeekHigh52:    getFloat64(info, "fiftyTwoWeekHigh"),
		WeekLow52:     getFloat64(info, "fiftyTwoWeekLow"),
		Price:         price,
		Sector:        getString(info, "sector", ""),
	}, nil
}

// GetCurrentPrice gets the current price for a symbol with retry logic.
func (c *Client) GetCurrentPrice(symbol string, maxRetries int) (*float64, error) {
	if maxRetries == 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		info, err := c.getQuoteInfo(symbol)
		if err != nil {
			lastErr = err
			if attempt < maxRetries-1 {
				waitTime := time.Duration(1<<uint(attempt)) * time.Second // exponential backoff
				c.log.Warn().Err(err).
					Str("symbol", symbol).
					Int("attempt", attempt+1).
					Dur("wait", waitTime).
					Msg("Failed to get price, retrying")
				time.Sleep(waitTime)
				continue
			}
			break
		}

		if price := getFloat64(info, "regularMarketPrice"); price != nil && *price > 0 {
			return price, nil
		}
		if price := getFloat64(info, "currentPrice"); price != nil && *price > 0 {
			return price, nil
		}

		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().
				Str("symbol", symbol).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Price was invalid, retrying")
			time.Sleep(waitTime)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
	}
	return nil, fmt.Errorf("failed to get valid price after %d attempts", maxRetries)
}

// GetHistoricalPrices fetches OHLCV bars between start and end at the given
// interval ("5m", "15m", "1d", ...). Rows where every price field is null
// are skipped.
func (c *Client) GetHistoricalPrices(symbol string, start, end time.Time, interval string) ([]Candle, error) {
	baseURL := "https://query1.finance.yahoo.com/v8/finance/chart/" + url.QueryEscape(symbol)

	params := url.Values{}
	params.Add("period1", fmt.Sprintf("%d", start.Unix()))
	params.Add("period2", fmt.Sprintf("%d", end.Unix()))
	params.Add("interval", interval)
	params.Add("events", "history")

	body, err := c.doGet(baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical data: %w", err)
	}

	var result struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []float64 `json:"open"`
						High   []float64 `json:"high"`
						Low    []float64 `json:"low"`
						Close  []float64 `json:"close"`
						Volume []int64   `json:"volume"`
					} `json:"quote"`
					AdjClose []struct {
						AdjClose []float64 `json:"adjclose"`
					} `json:"adjclose"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Chart.Error)
	}

	if len(result.Chart.Result) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No historical data returned")
		return []Candle{}, nil
	}

	chartData := result.Chart.Result[0]
	timestamps := chartData.Timestamp
	if len(chartData.Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No quote data in response")
		return []Candle{}, nil
	}

	quote := chartData.Indicators.Quote[0]

	var adjCloseData []float64
	if len(chartData.Indicators.AdjClose) > 0 {
		adjCloseData = chartData.Indicators.AdjClose[0].AdjClose
	}

	var candles []Candle
	for i := range timestamps {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}

		// Yahoo sometimes returns null rows
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		adjClose := quote.Close[i]
		if i < len(adjCloseData) && adjCloseData[i] != 0 {
			adjClose = adjCloseData[i]
		}

		volume := int64(0)
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		candles = append(candles, Candle{
			Date:     time.Unix(timestamps[i], 0),
			Open:     quote.Open[i],
			High:     quote.High[i],
			Low:      quote.Low[i],
			Close:    quote.Close[i],
			Volume:   volume,
			AdjClose: adjClose,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("interval", interval).
		Int("count", len(candles)).
		Msg("Fetched historical prices")

	return candles, nil
}

// GetNews fetches recent headlines for a symbol.
func (c *Client) GetNews(symbol string, count int) ([]NewsItem, error) {
	if count <= 0 {
		count = 10
	}

	params := url.Values{}
	params.Add("q", symbol)
	params.Add("newsCount", fmt.Sprintf("%d", count))
	params.Add("quotesCount", "0")

	body, err := c.doGet("https://query1.finance.yahoo.com/v1/finance/search?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}

	var result struct {
		News []struct {
			Title                   string `json:"title"`
			Publisher               string `json:"publisher"`
			Link                    string `json:"link"`
			ProviderPublishTimeUnix int64  `json:"providerPublishTime"`
			Thumbnail               struct {
				Resolutions []struct {
					URL string `json:"url"`
				} `json:"resolutions"`
			} `json:"thumbnail"`
		} `json:"news"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse news response: %w", err)
	}

	items := make([]NewsItem, 0, len(result.News))
	for _, n := range result.News {
		item := NewsItem{
			Symbol:      symbol,
			Title:       n.Title,
			Publisher:   n.Publisher,
			Link:        n.Link,
			PublishedAt: time.Unix(n.ProviderPublishTimeUnix, 0),
		}
		if len(n.Thumbnail.Resolutions) > 0 {
			item.Thumbnail = n.Thumbnail.Resolutions[0].URL
		}
		items = append(items, item)
	}

	return items, nil
}

// GetRecommendationTrend fetches the analyst recommendation trend buckets
// for a symbol, most recent period first.
func (c *Client) GetRecommendationTrend(symbol string) ([]RecommendationPeriod, error) {
	baseURL := "https://query1.finance.yahoo.com/v10/finance/quoteSummary/" + url.QueryEscape(symbol)

	params := url.Values{}
	params.Add("modules", "recommendationTrend")

	body, err := c.doGet(baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recommendation trend: %w", err)
	}

	var result struct {
		QuoteSummary struct {
			Result []struct {
				RecommendationTrend struct {
					Trend []struct {
						Period     string `json:"period"`
						StrongBuy  int    `json:"strongBuy"`
						Buy        int    `json:"buy"`
						Hold       int    `json:"hold"`
						Sell       int    `json:"sell"`
						StrongSell int    `json:"strongSell"`
					} `json:"trend"`
				} `json:"recommendationTrend"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"quoteSummary"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse recommendation response: %w", err)
	}

	if result.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.QuoteSummary.Error)
	}

	if len(result.QuoteSummary.Result) == 0 {
		return []RecommendationPeriod{}, nil
	}

	trend := result.QuoteSummary.Result[0].RecommendationTrend.Trend
	periods := make([]RecommendationPeriod, 0, len(trend))
	for _, tr := range trend {
		periods = append(periods, RecommendationPeriod{
			Period:     tr.Period,
			StrongBuy:  tr.StrongBuy,
			Buy:        tr.Buy,
			Hold:       tr.Hold,
			Sell:       tr.Sell,
			StrongSell: tr.StrongSell,
		})
	}

	return periods, nil
}

// Search performs a typeahead ticker search.
func (c *Client) Search(query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("quotesCount", "10")
	params.Add("newsCount", "0")

	body, err := c.doGet("https://query1.finance.yahoo.com/v1/finance/search?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var result struct {
		Quotes []struct {
			Symbol    string `json:"symbol"`
			ShortName string `json:"shortname"`
			LongName  string `json:"longname"`
			Exchange  string `json:"exchange"`
			QuoteType string `json:"quoteType"`
		} `json:"quotes"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	matches := make([]SearchResult, 0, len(result.Quotes))
	for _, q := range result.Quotes {
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		matches = append(matches, SearchResult{
			Symbol:   q.Symbol,
			Name:     name,
			Exchange: q.Exchange,
			Type:     q.QuoteType,
		})
	}

	return matches, nil
}

// yahooQuoteResponse represents the response from the quote API
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

// getQuoteInfo fetches quote information from the quote API
func (c *Client) getQuoteInfo(symbol string) (map[string]interface{}, error) {
	baseURL := "https://query1.finance.yahoo.com/v7/finance/quote"

	params := url.Values{}
	params.Add("symbols", symbol)
	params.Add("fields", "symbol,regularMarketPrice,currentPrice,trailingPE,priceToBook,beta,"+
		"dividendYield,marketCap,returnOnEquity,debtToEquity,fiftyTwoWeekHigh,fiftyTwoWeekLow,"+
		"sector,longName,shortName,quoteType")

	body, err := c.doGet(baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}

	var result yahooQuoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.QuoteResponse.Error)
	}

	if len(result.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("no quote data returned for symbol %s", symbol)
	}

	return result.QuoteResponse.Result[0], nil
}

// doGet performs a rate-limited GET with browser headers and returns the body.
func (c *Client) doGet(reqURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// Helper functions to safely extract values from map

func getFloat64(m map[string]interface{}, key string) *float64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		}
	}
	return nil
}

func getString(m map[string]interface{}, key string, defaultVal string) string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}
