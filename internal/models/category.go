package models

// AppCategory classifies the kind of app a screen-time session was spent in
type AppCategory string

const (
	CategoryEducational   AppCategory = "educational"
	CategoryCreative      AppCategory = "creative"
	CategoryReading       AppCategory = "reading"
	CategoryProductivity  AppCategory = "productivity"
	CategoryEntertainment AppCategory = "entertainment"
	CategoryGames         AppCategory = "games"
	CategorySocial        AppCategory = "social"
	CategoryOther         AppCategory = "other"
)

// CategoryInfo holds the display label and earning rate for a category
type CategoryInfo struct {
	Category        AppCategory
	Label           string
	PointsPerMinute int
}

// categoryCatalog is the static table of categories and their earning rates.
// Only qualifying categories earn points; entertainment-type usage earns zero.
var categoryCatalog = []CategoryInfo{
	{CategoryEducational, "Educational", 2},
	{CategoryCreative, "Creative", 2},
	{CategoryReading, "Reading", 3},
	{CategoryProductivity, "Productivity", 1},
	{CategoryEntertainment, "Entertainment", 0},
	{CategoryGames, "Games", 0},
	{CategorySocial, "Social", 0},
	{CategoryOther, "Other", 0},
}

var categoryIndex = buildCategoryIndex()

func buildCategoryIndex() map[AppCategory]CategoryInfo {
	index := make(map[AppCategory]CategoryInfo, len(categoryCatalog))
	for _, info := range categoryCatalog {
		index[info.Category] = info
	}
	return index
}

// Categories returns all known categories in catalog order
func Categories() []CategoryInfo {
	result := make([]CategoryInfo, len(categoryCatalog))
	copy(result, categoryCatalog)
	return result
}

// ParseCategory maps a string to a known category, falling back to "other"
func ParseCategory(s string) AppCategory {
	if _, ok := categoryIndex[AppCategory(s)]; ok {
		return AppCategory(s)
	}
	return CategoryOther
}

// IsValid reports whether the category is one of the known values
func (c AppCategory) IsValid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// PointsPerMinute returns the earning rate for the category
func (c AppCategory) PointsPerMinute() int {
	return categoryIndex[c].PointsPerMinute
}

// Label returns the display label for the category
func (c AppCategory) Label() string {
	return categoryIndex[c].Label
}
