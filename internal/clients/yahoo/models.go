package yahoo

import "time"

// Candle is a single OHLCV bar.
type Candle struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	AdjClose float64   `json:"adj_close"`
}

// Fundamentals holds the valuation and balance-sheet figures used by the
// screener and the dashboard info panel.
type Fundamentals struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	PERatio       *float64 `json:"pe_ratio"`
	PriceToBook   *float64 `json:"price_to_book"`
	Beta          *float64 `json:"beta"`
	DividendYield *float64 `json:"dividend_yield"`
	MarketCap     *float64 `json:"market_cap"`
	ROE           *float64 `json:"roe"`
	DebtToEquity  *float64 `json:"debt_to_equity"`
	WeekHigh52    *float64 `json:"fifty_two_week_high"`
	WeekLow52     *float64 `json:"fifty_two_week_low"`
	Price         *float64 `json:"price"`
	Sector        string   `json:"sector,omitempty"`
}

// NewsItem is a single headline attached to a symbol.
type NewsItem struct {
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
}

// RecommendationPeriod is one column of the analyst recommendation trend.
type RecommendationPeriod struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

// SearchResult is a typeahead match for a ticker query.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}
