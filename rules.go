package main

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// regexPrefix marks a pattern as a regular expression instead of a substring.
const regexPrefix = "re:"

type ruleKind int

const (
	ruleSubstring ruleKind = iota
	ruleRegex
)

type ruleField string

const (
	matchMerchant    ruleField = "merchant"
	matchDescription ruleField = "description"
)

// Rule is a single merchant or description pattern of a category.
type Rule struct {
	Kind    ruleKind
	Field   ruleField
	Pattern string

	upper string         // substring rules
	re    *regexp.Regexp // regex rules; nil when the pattern does not compile
}

func newRule(f ruleField, pattern string) Rule {
	r := Rule{Field: f, Pattern: pattern}
	if expr, ok := strings.CutPrefix(pattern, regexPrefix); ok {
		r.Kind = ruleRegex
		r.re, _ = regexp.Compile("(?i)" + expr)
		return r
	}
	r.Kind = ruleSubstring
	r.upper = strings.ToUpper(strings.TrimSpace(pattern))
	return r
}

func (r Rule) match(text, upper string) bool {
	switch r.Kind {
	case ruleRegex:
		return r.re != nil && r.re.MatchString(text)
	default:
		return r.upper != "" && strings.Contains(upper, r.upper)
	}
}

// RuleSet is the compiled rule collection of a category. Its persisted form
// is {"merchant": [...], "description": [...]}.
type RuleSet struct {
	rules []Rule
}

type rulesDoc struct {
	Merchant    []string `json:"merchant" yaml:"merchant"`
	Description []string `json:"description" yaml:"description"`
}

func newRuleSet(merchant, description []string) RuleSet {
	rs := RuleSet{rules: make([]Rule, 0, len(merchant)+len(description))}
	for _, p := range merchant {
		rs.rules = append(rs.rules, newRule(matchMerchant, p))
	}
	for _, p := range description {
		rs.rules = append(rs.rules, newRule(matchDescription, p))
	}
	return rs
}

// Patterns returns the raw patterns for one field in their original order.
func (rs RuleSet) Patterns(f ruleField) []string {
	out := []string{}
	for _, r := range rs.rules {
		if r.Field == f {
			out = append(out, r.Pattern)
		}
	}
	return out
}

// Len reports the number of rules across both fields.
func (rs RuleSet) Len() int { return len(rs.rules) }

// Match reports whether any rule for field f matches text.
func (rs RuleSet) Match(f ruleField, text string) bool {
	if text == "" {
		return false
	}
	upper := strings.ToUpper(text)
	for _, r := range rs.rules {
		if r.Field == f && r.match(text, upper) {
			return true
		}
	}
	return false
}

func (rs RuleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(rulesDoc{
		Merchant:    rs.Patterns(matchMerchant),
		Description: rs.Patterns(matchDescription),
	})
}

func (rs *RuleSet) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding rules: %w", err)
	}
	*rs = ruleSetFromMap(raw)
	return nil
}

func (rs *RuleSet) UnmarshalYAML(value *yaml.Node) error {
	var doc rulesDoc
	if err := value.Decode(&doc); err != nil {
		return fmt.Errorf("decoding rules: %w", err)
	}
	*rs = newRuleSet(doc.Merchant, doc.Description)
	return nil
}

// parseRuleSet decodes a stored rules blob. A blob that is not a JSON object
// yields an empty rule set.
func parseRuleSet(blob string) RuleSet {
	var raw map[string]any
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return RuleSet{}
	}
	return ruleSetFromMap(raw)
}

func ruleSetFromMap(raw map[string]any) RuleSet {
	return newRuleSet(patternList(raw["merchant"]), patternList(raw["description"]))
}

// patternList accepts a list of patterns or a single pattern; nested lists
// are joined with spaces and nulls are dropped.
func patternList(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(x))
		for _, p := range x {
			if p == nil {
				continue
			}
			out = append(out, asText(p))
		}
		return out
	default:
		return []string{asText(x)}
	}
}

// asText coerces a loosely typed value into one string for matching.
func asText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, " ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, p := range x {
			parts = append(parts, asText(p))
		}
		return strings.Join(parts, " ")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// matches reports whether text matches any of patterns. Plain patterns are
// case-insensitive substrings; "re:" patterns are case-insensitive regular
// expressions and never match when malformed.
func matches(text any, patterns []string) bool {
	s := asText(text)
	if s == "" || len(patterns) == 0 {
		return false
	}
	upper := strings.ToUpper(s)
	for _, p := range patterns {
		if newRule(matchMerchant, p).match(s, upper) {
			return true
		}
	}
	return false
}
