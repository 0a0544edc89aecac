package common

const (
	// TabIDFavorites is the sentinel id of the virtual favorites tab. It is
	// always selectable and never present in the uploads store.
	TabIDFavorites = "favorites"

	// TabIDPrefix prefixes generated ids of imported tabs.
	TabIDPrefix = "import_"

	// Legacy flat-store keys consumed exactly once during startup migration.
	LegacyKeyFavorites = "stock_favorites"
	LegacyKeyTabs      = "stock_tabs"

	// FilterAll is the sentinel filter value that clears a whole filter set.
	FilterAll = "ALL"

	FilterKindConcept = "concept"
	FilterKindAgency  = "agency"

	ViewModeGrid = "grid"
	ViewModeList = "list"

	GridColumnsAuto = "auto"

	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"

	// TabNameMaxLen caps the display label of an imported tab, in runes.
	TabNameMaxLen = 20

	DefaultPageSize = 20
)

// PageSizes lists the allowed page sizes.
var PageSizes = []int{20, 50, 100, 200, 500, 1000}

// ValidPageSize reports whether size is one of the allowed page sizes.
func ValidPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}
