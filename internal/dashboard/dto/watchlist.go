package dto

// TabSummary is the sidebar view of one imported tab.
type TabSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StockCount int    `json:"stock_count"`
}

// StockItem is one displayed row of the current page.
type StockItem struct {
	Code     string   `json:"code"`
	Name     string   `json:"name,omitempty"`
	Price    string   `json:"price,omitempty"`
	Concept  string   `json:"concept,omitempty"`
	Agencies []string `json:"agencies,omitempty"`
	Favorite bool     `json:"favorite"`
	QuoteURL string   `json:"quote_url"`
}

// PaginationMeta describes the clamped page window over the filtered list.
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
	Start      int `json:"start"`
	End        int `json:"end"`
}

// FilterState is the set of active filter values per dimension.
type FilterState struct {
	Concept []string `json:"concept"`
	Agency  []string `json:"agency"`
}

// Facets lists every choosable filter value for the current raw list,
// independent of the active selection.
type Facets struct {
	Concepts []string `json:"concepts"`
	Agencies []string `json:"agencies"`
}

// ViewState is the rendering preference pair.
type ViewState struct {
	Mode        string `json:"mode"`
	GridColumns string `json:"grid_columns"`
}

// WatchlistResponse is the full derived view for the active selection.
type WatchlistResponse struct {
	ActiveTabID   string         `json:"active_tab_id"`
	Tabs          []TabSummary   `json:"tabs"`
	FavoriteCount int            `json:"favorite_count"`
	Stocks        []StockItem    `json:"stocks"`
	Pagination    PaginationMeta `json:"pagination"`
	Filters       FilterState    `json:"filters"`
	Facets        Facets         `json:"facets"`
	View          ViewState      `json:"view"`
}

// ImportResponse reports a successful spreadsheet import.
type ImportResponse struct {
	TabID      string `json:"tab_id"`
	Name       string `json:"name"`
	StockCount int    `json:"stock_count"`
}

// AddFavoriteRequest carries a user-entered stock code.
type AddFavoriteRequest struct {
	Code string `json:"code"`
}

// AddFavoriteResponse reports whether the normalized code was newly added.
type AddFavoriteResponse struct {
	Code    string `json:"code"`
	Added   bool   `json:"added"`
	Message string `json:"message,omitempty"`
}

// ToggleFavoriteResponse reports the membership state after a toggle.
type ToggleFavoriteResponse struct {
	Code     string `json:"code"`
	Favorite bool   `json:"favorite"`
}

// ToggleFilterRequest toggles one filter value; the ALL sentinel clears the
// whole set for that kind.
type ToggleFilterRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// SetPageRequest selects a page; out-of-range values are clamped.
type SetPageRequest struct {
	Page int `json:"page"`
}

// SetPageSizeRequest selects one of the allowed page sizes.
type SetPageSizeRequest struct {
	PageSize int `json:"page_size"`
}

// SetViewRequest updates the rendering preferences.
type SetViewRequest struct {
	Mode        string `json:"mode"`
	GridColumns string `json:"grid_columns"`
}
