package scoring

import (
	"strings"
	"time"

	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/normalizers"
)

// Scorer provides various string and value comparison algorithms
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ExactMatch returns 1.0 for exact match, 0.0 otherwise
func (s *Scorer) ExactMatch(a, b string, caseSensitive bool) float64 {
	if !caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if a == b {
		return 1.0
	}
	return 0.0
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings
// Returns a value between 0.0 (no similarity) and 1.0 (exact match)
func (s *Scorer) JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}

	jaro := s.Jaro(a, b)

	// Winkler modification: boost for common prefix
	prefixLen := 0
	maxPrefix := 4
	for i := 0; i < len(a) && i < len(b) && i < maxPrefix; i++ {
		if a[i] == b[i] {
			prefixLen++
		} else {
			break
		}
	}

	// Winkler scaling factor is typically 0.1
	scalingFactor := 0.1
	return jaro + float64(prefixLen)*scalingFactor*(1.0-jaro)
}

// Jaro calculates the Jaro similarity between two strings
func (s *Scorer) Jaro(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Maximum distance for character matching
	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	transpositions := 0

	// Find matches
	for i := 0; i < len(a); i++ {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	// Count transpositions
	k := 0
	for i := 0; i < len(a); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// Levenshtein calculates the Levenshtein distance between two strings
// Returns a similarity score between 0.0 and 1.0
func (s *Scorer) Levenshtein(a, b string) float64 {
	distance := s.LevenshteinDistance(a, b)
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// TokenSetRatio calculates the Dice coefficient over the word sets of two
// already-normalized strings
func (s *Scorer) TokenSetRatio(a, b string) float64 {
	aTokens := normalizers.Tokens(a)
	bTokens := normalizers.Tokens(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0.0
	}

	seen := make(map[string]bool, len(aTokens))
	for _, tok := range aTokens {
		seen[tok] = true
	}

	common := 0
	matched := make(map[string]bool)
	for _, tok := range bTokens {
		if seen[tok] && !matched[tok] {
			common++
			matched[tok] = true
		}
	}

	return 2.0 * float64(common) / float64(len(aTokens)+len(bTokens))
}

// OrganizationSimilarity compares company or institution names. Normalized
// exact match wins outright; otherwise the best of token overlap and
// Jaro-Winkler.
func (s *Scorer) OrganizationSimilarity(a, b string) float64 {
	na := normalizers.NormalizeOrganization(a)
	nb := normalizers.NormalizeOrganization(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}
	return maxFloat(s.TokenSetRatio(na, nb), s.JaroWinkler(na, nb))
}

// TitleSimilarity compares job titles or degree names after abbreviation
// expansion
func (s *Scorer) TitleSimilarity(a, b string) float64 {
	na := normalizers.NormalizeTitle(a)
	nb := normalizers.NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}
	return maxFloat(s.TokenSetRatio(na, nb), s.JaroWinkler(na, nb))
}

// BulletSimilarity compares two description lines for near-duplicate
// detection
func (s *Scorer) BulletSimilarity(a, b string) float64 {
	na := normalizers.NormalizeBullet(a)
	nb := normalizers.NormalizeBullet(b)
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}
	return maxFloat(s.TokenSetRatio(na, nb), s.JaroWinkler(na, nb))
}

// DescriptionSimilarity compares two bullet lists: each line on the shorter
// side is paired with its best match on the other, and the pair scores are
// averaged
func (s *Scorer) DescriptionSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(b) < len(a) {
		a, b = b, a
	}

	var sum float64
	for _, line := range a {
		best := 0.0
		for _, other := range b {
			if sim := s.BulletSimilarity(line, other); sim > best {
				best = sim
			}
		}
		sum += best
	}
	return sum / float64(len(a))
}

// DateRangeOverlap scores two date ranges as overlap days over union days.
// A nil end date means the range runs to now. Missing or malformed dates
// score 0: noisy extraction output must not manufacture overlap.
func (s *Scorer) DateRangeOverlap(aStart models.Date, aEnd *models.Date, bStart models.Date, bEnd *models.Date, now time.Time) float64 {
	aFrom, aTo, ok := rangeBounds(aStart, aEnd, now)
	if !ok {
		return 0.0
	}
	bFrom, bTo, ok := rangeBounds(bStart, bEnd, now)
	if !ok {
		return 0.0
	}

	overlapFrom := maxTime(aFrom, bFrom)
	overlapTo := minTime(aTo, bTo)
	if overlapTo.Before(overlapFrom) {
		return 0.0
	}

	unionFrom := minTime(aFrom, bFrom)
	unionTo := maxTime(aTo, bTo)

	// Point ranges (start == end on both sides) only count when identical.
	unionDays := unionTo.Sub(unionFrom).Hours() / 24
	if unionDays == 0 {
		return 1.0
	}

	overlapDays := overlapTo.Sub(overlapFrom).Hours() / 24
	return overlapDays / unionDays
}

// YearMatch scores certification years: equal years score 1.0, a missing year
// on either side scores 0.5, anything else 0.0
func (s *Scorer) YearMatch(a, b int) float64 {
	switch {
	case a == 0 || b == 0:
		return 0.5
	case a == b:
		return 1.0
	}
	return 0.0
}

// WeightedScore calculates a weighted average of scores
func (s *Scorer) WeightedScore(scores map[string]float64, weights map[string]float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	var totalWeight float64
	var weightedSum float64

	for field, score := range scores {
		weight := 1.0 // Default weight
		if w, ok := weights[field]; ok {
			weight = w
		}
		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0
	}

	return weightedSum / totalWeight
}

func rangeBounds(start models.Date, end *models.Date, now time.Time) (time.Time, time.Time, bool) {
	if !start.Valid {
		return time.Time{}, time.Time{}, false
	}
	to := now
	if end != nil {
		if !end.Valid {
			return time.Time{}, time.Time{}, false
		}
		to = end.Time
	}
	if to.Before(start.Time) {
		return time.Time{}, time.Time{}, false
	}
	return start.Time, to, true
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
