package dto

// Candle is one kline bar.
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume float64 `json:"volume"`
}

// KlineResponse is the candle series for one exchange-qualified code.
type KlineResponse struct {
	Code    string   `json:"code"`
	SecID   string   `json:"sec_id"`
	Period  string   `json:"period"`
	Candles []Candle `json:"candles"`
}

// NewsItem is one news entry for a stock.
type NewsItem struct {
	Title  string `json:"title"`
	Date   string `json:"date"`
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// NewsResponse is the news list for one code. A timed-out upstream fetch
// resolves to an empty Items slice, not an error.
type NewsResponse struct {
	Code  string     `json:"code"`
	Items []NewsItem `json:"items"`
}

// Card is one stock card with its independently fetched chart and news. A
// failed fetch is isolated into Error and never fails sibling cards.
type Card struct {
	Code  string         `json:"code"`
	Kline *KlineResponse `json:"kline,omitempty"`
	News  *NewsResponse  `json:"news,omitempty"`
	Error string         `json:"error,omitempty"`
}

// CardsResponse is the batch card view for one page of codes.
type CardsResponse struct {
	Cards []Card `json:"cards"`
}
