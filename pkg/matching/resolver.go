// Package matching decides what to do with a scored candidate: merge it into
// an existing entry, add it as new, or park it for manual review.
package matching

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/scoring"
)

// Outcome is the resolver's verdict for a candidate against one entry.
type Outcome string

const (
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeDistinct  Outcome = "distinct"
)

// Band holds the two thresholds that split the score range into distinct,
// ambiguous, and duplicate. Scores >= High merge, scores < Low add a new
// entry, everything between goes to review.
type Band struct {
	Low  float64
	High float64
}

// Config carries the per-section threshold bands.
type Config struct {
	Bands map[models.SectionType]Band
}

// DefaultConfig returns the stock thresholds. Skills match on identity, so
// their band is degenerate: 1.0 merges, anything else is distinct.
func DefaultConfig() Config {
	return Config{
		Bands: map[models.SectionType]Band{
			models.SectionWorkExperience: {Low: 0.60, High: 0.85},
			models.SectionEducation:      {Low: 0.60, High: 0.85},
			models.SectionProject:        {Low: 0.55, High: 0.80},
			models.SectionCertification:  {Low: 0.60, High: 0.85},
			models.SectionSkill:          {Low: 1.0, High: 1.0},
		},
	}
}

// ScoredMatch pairs an existing entry with its similarity to a candidate.
type ScoredMatch struct {
	Entry *models.Entry
	Score float64
	Axes  map[string]float64
}

// Resolver applies threshold bands to scored candidates.
type Resolver struct {
	logger ectologger.Logger
	scorer *scoring.Scorer
	config Config
}

// NewResolver creates a Resolver.
func NewResolver(logger ectologger.Logger, scorer *scoring.Scorer, config Config) *Resolver {
	return &Resolver{
		logger: logger,
		scorer: scorer,
		config: config,
	}
}

// Band returns the threshold band for a section.
func (r *Resolver) Band(section models.SectionType) Band {
	if band, ok := r.config.Bands[section]; ok {
		return band
	}
	return Band{Low: 0.60, High: 0.85}
}

// Classify maps a score to an outcome for the given section.
func (r *Resolver) Classify(section models.SectionType, score float64) Outcome {
	band := r.Band(section)
	switch {
	case score >= band.High:
		return OutcomeDuplicate
	case score >= band.Low:
		return OutcomeAmbiguous
	}
	return OutcomeDistinct
}

// Resolve scores a candidate against every existing entry in its section and
// returns the best match with its outcome. A close runner-up is logged so
// ambiguous clusters can be audited later.
func (r *Resolver) Resolve(ctx context.Context, candidate models.Candidate, entries []models.Entry, now time.Time) (Outcome, *ScoredMatch) {
	var best *ScoredMatch
	var runnerUp *ScoredMatch

	for i := range entries {
		entry := &entries[i]
		axes, score := r.scorer.Score(entry.Fields, candidate.Fields, now)
		match := &ScoredMatch{Entry: entry, Score: score, Axes: axes}
		switch {
		case best == nil || score > best.Score:
			runnerUp = best
			best = match
		case runnerUp == nil || score > runnerUp.Score:
			runnerUp = match
		}
	}

	if best == nil {
		return OutcomeDistinct, nil
	}

	outcome := r.Classify(candidate.Section, best.Score)

	if runnerUp != nil && r.Classify(candidate.Section, runnerUp.Score) != OutcomeDistinct {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"section":        candidate.Section,
			"best_entry":     best.Entry.ID,
			"best_score":     best.Score,
			"runner_up":      runnerUp.Entry.ID,
			"runner_up_score": runnerUp.Score,
		}).Warn("multiple entries scored above the distinct threshold")
	}

	return outcome, best
}
