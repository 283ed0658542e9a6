package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultCategories is the seeded catalog, in evaluation order. Earlier
// entries win when several match, so narrower categories come first.
func defaultCategories() []Category {
	cat := func(name string, merchant, description []string) Category {
		return Category{Name: name, Rules: newRuleSet(merchant, description)}
	}
	return []Category{
		cat("Groceries",
			[]string{"COSTCO", "WALMART", "NO FRILLS", "SUPERSTORE", "LOBLAWS", "SOBEYS", "FOODLAND", "GIANT TIGER", "FRESHCO", "REAL CANADIAN SUPERSTORE"},
			[]string{"GROCERY", "SUPERMARKET"}),
		cat("Dining",
			[]string{"STARBUCKS", "TIM HORTONS", "MCDONALD", "SUBWAY", "KFC", "PIZZA PIZZA", "DOMINO", "POPEYES", "BURGER KING", "A&W", "WENDY", "HARVEYS"},
			[]string{"DINING", "RESTAURANT", "CAFE", "COFFEE", "FAST FOOD"}),
		cat("Transport",
			[]string{"UBER", "LYFT", "TTC", "TRANSIT", "HALIFAX TRANSIT", "YYZ EXPRESS", "PRESTO"},
			[]string{"TRANSIT", "BUS", "SUBWAY", "TRAIN", "TAXI", "RIDE"}),
		cat("Utilities",
			[]string{"BELL", "ROGERS", "TELUS", "KOODO", "FIDO", "EASTLINK", "NOVA SCOTIA POWER", "NS POWER", "HYDRO", "ENMAX", "FORTIS", "EPCOR"},
			[]string{"INTERNET", "MOBILE", "PHONE", "ELECTRIC", "UTILITY", "HYDRO", "POWER", "WATER", "GAS BILL"}),
		cat("Fuel & Gas",
			[]string{"IRVING", "ESSO", "SHELL", "PETRO", "PETRO-CANADA", "ULTRAMAR", "HUSKY", "PIONEER"},
			[]string{"FUEL", "GAS STATION", "PUMP"}),
		cat("Entertainment",
			[]string{"NETFLIX", "SPOTIFY", "DISNEY", "APPLE.COM", "GOOGLE", "YOUTUBE", "MICROSOFT XBOX", "PLAYSTATION"},
			[]string{"SUBSCRIPTION", "STREAM", "ENTERTAINMENT"}),
		cat("Pharmacy",
			[]string{"SHOPPERS DRUG MART", "LAWTONS", "PHARMASAVE", "JEAN COUTU", "REXALL"},
			[]string{"PHARMACY", "PRESCRIPTION"}),
		cat("Shopping",
			[]string{"AMAZON", "BEST BUY", "CANADIAN TIRE", "H&M", "ZARA", "WALMART ONLINE", "EBAY", "ETSY"},
			[]string{"ONLINE ORDER", "MARKETPLACE", "RETAIL"}),
		cat("Travel",
			[]string{"AIR CANADA", "WESTJET", "PORTER", "EXPEDIA", "BOOKING.COM", "AIRBNB"},
			[]string{"FLIGHT", "HOTEL", "TRAVEL", "BAGGAGE"}),
		cat("Rent",
			[]string{"RENT", "PROPERTY MGMT", "PAD", "YARDI", "AVENUE LIVING", "CAPREIT", "MORGARD", "HOMESTEAD"},
			[]string{"RENT", "LEASE", "TENANCY", `re:^PAD\s*RENT`}),
		cat("Fees",
			[]string{"BANK FEE", "NSF", "SERVICE CHARGE", "MAINTENANCE FEE"},
			[]string{"FEE", "SURCHARGE", "SERVICE CHARGE", "OVERDRAFT"}),
		cat("Income",
			[]string{"PAYROLL", "DIRECT DEPOSIT", "GOVERNMENT OF CANADA", "CRA", "EI"},
			[]string{"PAYCHEQUE", "SALARY", "SCHOLARSHIP", "STIPEND"}),
		cat("Other", nil, nil),
	}
}

// catalogFile is the YAML form accepted by `ledger seed --file`:
//
//	categories:
//	  - name: Groceries
//	    rules:
//	      merchant: [COSTCO]
//	      description: ["re:GROCER(Y|IES)"]
type catalogFile struct {
	Categories []Category `yaml:"categories"`
}

func loadCatalog(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := validateCatalog(f.Categories); err != nil {
		return nil, err
	}
	return f.Categories, nil
}

func validateCatalog(cats []Category) error {
	seen := make(map[string]bool, len(cats))
	for i := range cats {
		name := strings.TrimSpace(cats[i].Name)
		if name == "" {
			return validationErrorf(fmt.Sprintf("category %d has no name", i+1))
		}
		if seen[name] {
			return validationErrorf(fmt.Sprintf("duplicate category %q", name))
		}
		seen[name] = true
		cats[i].Name = name
	}
	return nil
}
