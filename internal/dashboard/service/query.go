package service

import (
	"sort"

	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/common"
)

// state is the canonical in-memory watchlist state. It is the source of
// truth for rendering; the embedded database trails it as a write-behind
// cache. All access goes through the owning service's lock.
type state struct {
	tabs          []*entity.Tab
	favorites     map[string]bool
	favoriteOrder []string
	activeTabID   string

	conceptFilter map[string]bool
	agencyFilter  map[string]bool

	page     int
	pageSize int

	viewMode    string
	gridColumns string

	// index maps code to the first record carrying it across tabs, in tab
	// insertion order. Maintained on tab add/remove so favorite hydration
	// is a lookup instead of a scan over every tab.
	index map[string]*entity.StockRecord
}

func newState(defaultPageSize int) *state {
	if !common.ValidPageSize(defaultPageSize) {
		defaultPageSize = common.DefaultPageSize
	}
	return &state{
		favorites:     map[string]bool{},
		activeTabID:   common.TabIDFavorites,
		conceptFilter: map[string]bool{},
		agencyFilter:  map[string]bool{},
		page:          1,
		pageSize:      defaultPageSize,
		viewMode:      common.ViewModeGrid,
		gridColumns:   common.GridColumnsAuto,
		index:         map[string]*entity.StockRecord{},
	}
}

func (st *state) indexTab(tab *entity.Tab) {
	for i := range tab.Stocks {
		s := &tab.Stocks[i]
		if _, ok := st.index[s.Code]; !ok {
			st.index[s.Code] = s
		}
	}
}

func (st *state) rebuildIndex() {
	st.index = map[string]*entity.StockRecord{}
	for _, tab := range st.tabs {
		st.indexTab(tab)
	}
}

func (st *state) findTab(id string) *entity.Tab {
	for _, tab := range st.tabs {
		if tab.ID == id {
			return tab
		}
	}
	return nil
}

// rawList derives the unfiltered record list for the active selection. The
// favorites view hydrates each code from the tab index; codes no tab carries
// degrade to code-only stubs. A stale active tab id yields an empty list.
func (st *state) rawList() []entity.StockRecord {
	if st.activeTabID == common.TabIDFavorites {
		list := make([]entity.StockRecord, 0, len(st.favoriteOrder))
		for _, code := range st.favoriteOrder {
			if rec, ok := st.index[code]; ok {
				list = append(list, *rec)
			} else {
				list = append(list, entity.StockRecord{Code: code})
			}
		}
		return list
	}
	if tab := st.findTab(st.activeTabID); tab != nil {
		return tab.Stocks
	}
	return nil
}

// filteredList applies the concept and agency filters as independent AND-ed
// predicates. An empty filter set passes everything on that dimension.
func (st *state) filteredList() []entity.StockRecord {
	list := st.rawList()
	if len(st.conceptFilter) == 0 && len(st.agencyFilter) == 0 {
		return list
	}

	filtered := make([]entity.StockRecord, 0, len(list))
	for _, rec := range list {
		if len(st.conceptFilter) > 0 && !intersects(rec.ConceptTags(), st.conceptFilter) {
			continue
		}
		if len(st.agencyFilter) > 0 && !intersects(rec.Agencies, st.agencyFilter) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

func intersects(values []string, set map[string]bool) bool {
	for _, v := range values {
		if set[v] {
			return true
		}
	}
	return false
}

// clampPage bounds page to [1, max(1, ceil(totalItems/pageSize))].
func clampPage(page, totalItems, pageSize int) int {
	maxPage := (totalItems + pageSize - 1) / pageSize
	if maxPage < 1 {
		maxPage = 1
	}
	if page < 1 {
		return 1
	}
	if page > maxPage {
		return maxPage
	}
	return page
}

// pageSlice derives the current page window over the filtered list, clamping
// the page first. The returned start index is zero-based.
func (st *state) pageSlice() (items []entity.StockRecord, page, start int) {
	filtered := st.filteredList()
	page = clampPage(st.page, len(filtered), st.pageSize)
	start = (page - 1) * st.pageSize
	end := start + st.pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], page, start
}

// facetValues computes the sorted, deduplicated filter universes from the raw
// list. The current filter selection is deliberately ignored so every value
// stays choosable while filters are active.
func (st *state) facetValues() (concepts, agencies []string) {
	conceptSet := map[string]bool{}
	agencySet := map[string]bool{}
	for _, rec := range st.rawList() {
		for _, tag := range rec.ConceptTags() {
			conceptSet[tag] = true
		}
		for _, agency := range rec.Agencies {
			agencySet[agency] = true
		}
	}
	return sortedKeys(conceptSet), sortedKeys(agencySet)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
