// Package normalizers provides field normalization functions for match scoring
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("remove_punctuation", RemovePunctuation)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("norg", NormalizeOrganization)
	Register("ntitle", NormalizeTitle)
	Register("nskill", NormalizeSkill)
	Register("nbullet", NormalizeBullet)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

var spaceRe = regexp.MustCompile(`\s+`)

// Corporate suffixes stripped when comparing organization names.
var orgSuffixes = []string{
	"inc", "incorporated", "llc", "llp", "ltd", "limited",
	"corp", "corporation", "co", "company", "gmbh", "plc", "sa",
}

// Seniority and abbreviation rewrites applied to job titles.
var titleRewrites = map[string]string{
	"sr":   "senior",
	"jr":   "junior",
	"eng":  "engineer",
	"dev":  "developer",
	"mgr":  "manager",
	"svp":  "senior vice president",
	"vp":   "vice president",
	"swe":  "software engineer",
	"univ": "university",
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// RemovePunctuation removes all punctuation and symbol characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// CollapseWhitespace folds runs of whitespace into single spaces and trims
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// NormalizeOrganization normalizes a company or institution name for matching
// - Lowercase
// - Remove punctuation
// - Strip trailing corporate suffixes (Inc., LLC, GmbH, ...)
// - Collapse whitespace
func NormalizeOrganization(s string) string {
	s = CollapseWhitespace(RemovePunctuation(strings.ToLower(s)))
	for changed := true; changed; {
		changed = false
		for _, suffix := range orgSuffixes {
			if strings.HasSuffix(s, " "+suffix) {
				s = strings.TrimSpace(s[:len(s)-len(suffix)-1])
				changed = true
			}
		}
	}
	return s
}

// NormalizeTitle normalizes a job title or degree name for matching
// - Lowercase
// - Remove punctuation
// - Expand common abbreviations (sr -> senior, swe -> software engineer, ...)
func NormalizeTitle(s string) string {
	s = CollapseWhitespace(RemovePunctuation(strings.ToLower(s)))
	words := strings.Split(s, " ")
	for i, w := range words {
		if full, ok := titleRewrites[w]; ok {
			words[i] = full
		}
	}
	return strings.Join(words, " ")
}

// NormalizeSkill normalizes a skill name for identity matching. Keeps + and #
// so c++ and c# stay distinct from c.
func NormalizeSkill(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var result strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#':
			result.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_':
			result.WriteRune(' ')
		}
	}
	return CollapseWhitespace(result.String())
}

// NormalizeBullet normalizes a description line for near-duplicate detection
func NormalizeBullet(s string) string {
	s = CollapseWhitespace(strings.ToLower(s))
	return strings.TrimRight(s, ".;")
}

// Tokens splits a normalized string into its words
func Tokens(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, " ")
}
