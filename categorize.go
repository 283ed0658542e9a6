package main

// fallbackCategory is assigned when no category rule matches.
const fallbackCategory = "Other"

// incomeKey collects credit totals in the monthly breakdown.
const incomeKey = "Income"

// categorizer assigns exactly one category per transaction. Categories are
// evaluated in the order given; the first match wins.
type categorizer struct {
	categories []Category
}

func newCategorizer(categories []Category) *categorizer {
	return &categorizer{categories: categories}
}

func (c *categorizer) infer(merchant, description string) string {
	for _, cat := range c.categories {
		if cat.Rules.Match(matchMerchant, merchant) || cat.Rules.Match(matchDescription, description) {
			return cat.Name
		}
	}
	return fallbackCategory
}

// knows reports whether name may be assigned to a transaction.
func (c *categorizer) knows(name string) bool {
	if name == fallbackCategory {
		return true
	}
	for _, cat := range c.categories {
		if cat.Name == name {
			return true
		}
	}
	return false
}
