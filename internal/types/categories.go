package types

import "strings"

// Category is a coarse classification of a work item derived from its labels.
// Categories drive outcome aggregation and generation feedback.
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryBug           Category = "bug"
	CategoryPerformance   Category = "performance"
	CategoryCICD          Category = "ci/cd"
	CategoryTest          Category = "test"
	CategoryDocumentation Category = "documentation"
	CategoryRefactor      Category = "refactor"
	CategoryFeature       Category = "feature"
	CategoryOther         Category = "other"
)

// IsValid checks if the category value is valid
func (c Category) IsValid() bool {
	switch c {
	case CategorySecurity, CategoryBug, CategoryPerformance, CategoryCICD,
		CategoryTest, CategoryDocumentation, CategoryRefactor, CategoryFeature,
		CategoryOther:
		return true
	}
	return false
}

// categoryRule maps a label substring to a category.
type categoryRule struct {
	pattern  string
	category Category
}

// categoryRules is evaluated in fixed priority order: the first rule whose
// pattern appears in any label wins. Order matters: a label set like
// {"bug", "security"} classifies as security, not bug.
var categoryRules = []categoryRule{
	{"security", CategorySecurity},
	{"vulnerability", CategorySecurity},
	{"bug", CategoryBug},
	{"fix", CategoryBug},
	{"performance", CategoryPerformance},
	{"perf", CategoryPerformance},
	{"ci/cd", CategoryCICD},
	{"cicd", CategoryCICD},
	{"ci", CategoryCICD},
	{"test", CategoryTest},
	{"doc", CategoryDocumentation},
	{"refactor", CategoryRefactor},
	{"cleanup", CategoryRefactor},
	{"feature", CategoryFeature},
	{"enhancement", CategoryFeature},
}

// ClassifyLabels derives a category from an item's labels using the ordered
// rule table. Matching is case-insensitive substring containment. Returns
// CategoryOther when no rule matches (including an empty label set).
func ClassifyLabels(labels []string) Category {
	if len(labels) == 0 {
		return CategoryOther
	}

	lowered := make([]string, len(labels))
	for i, label := range labels {
		lowered[i] = strings.ToLower(label)
	}

	for _, rule := range categoryRules {
		for _, label := range lowered {
			if strings.Contains(label, rule.pattern) {
				return rule.category
			}
		}
	}

	return CategoryOther
}
