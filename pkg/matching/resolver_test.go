package matching

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/scoring"
)

var now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func newResolver() *Resolver {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewResolver(logger, scoring.NewScorer(), DefaultConfig())
}

func datePtr(d models.Date) *models.Date { return &d }

func workEntry(id, company, title, start, end string) models.Entry {
	fields := models.WorkExperienceFields{
		Company:   company,
		Title:     title,
		StartDate: models.ParseDate(start),
	}
	if end != "" {
		fields.EndDate = datePtr(models.ParseDate(end))
	}
	return models.Entry{
		ID:         id,
		SectionTyp: models.SectionWorkExperience,
		Fields:     fields,
	}
}

func TestClassify(t *testing.T) {
	r := newResolver()

	tests := []struct {
		name    string
		section models.SectionType
		score   float64
		want    Outcome
	}{
		{"above high", models.SectionWorkExperience, 0.9, OutcomeDuplicate},
		{"at high", models.SectionWorkExperience, 0.85, OutcomeDuplicate},
		{"in band", models.SectionWorkExperience, 0.7, OutcomeAmbiguous},
		{"at low", models.SectionWorkExperience, 0.6, OutcomeAmbiguous},
		{"below low", models.SectionWorkExperience, 0.59, OutcomeDistinct},
		{"skill exact only", models.SectionSkill, 0.99, OutcomeDistinct},
		{"skill identity", models.SectionSkill, 1.0, OutcomeDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Classify(tt.section, tt.score))
		})
	}
}

func TestResolveDuplicate(t *testing.T) {
	r := newResolver()

	entries := []models.Entry{
		workEntry("e1", "Acme Corp", "Software Engineer", "2020-01", "2021-12"),
		workEntry("e2", "Globex", "Analyst", "2015-01", "2016-06"),
	}
	candidate := models.Candidate{
		Section: models.SectionWorkExperience,
		Fields: models.WorkExperienceFields{
			Company:   "ACME CORP.",
			Title:     "Engineer",
			StartDate: models.ParseDate("2020-01"),
			EndDate:   datePtr(models.ParseDate("2021-12")),
		},
	}

	outcome, best := r.Resolve(context.Background(), candidate, entries, now)
	require.NotNil(t, best)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, "e1", best.Entry.ID)
	assert.GreaterOrEqual(t, best.Score, 0.85)
}

func TestResolveDistinctAgainstEmptySection(t *testing.T) {
	r := newResolver()

	candidate := models.Candidate{
		Section: models.SectionWorkExperience,
		Fields:  models.WorkExperienceFields{Company: "Acme", Title: "Engineer"},
	}

	outcome, best := r.Resolve(context.Background(), candidate, nil, now)
	assert.Equal(t, OutcomeDistinct, outcome)
	assert.Nil(t, best)
}

func TestResolveAmbiguous(t *testing.T) {
	r := newResolver()

	// Same company, overlapping dates, clearly different titles: enough
	// signal to suspect a duplicate, not enough to merge.
	entries := []models.Entry{
		workEntry("e1", "Acme Corp", "Product Manager", "2020-01", "2022-01"),
	}
	candidate := models.Candidate{
		Section: models.SectionWorkExperience,
		Fields: models.WorkExperienceFields{
			Company:   "Acme Corp",
			Title:     "Data Scientist",
			StartDate: models.ParseDate("2020-06"),
			EndDate:   datePtr(models.ParseDate("2021-06")),
		},
	}

	outcome, best := r.Resolve(context.Background(), candidate, entries, now)
	require.NotNil(t, best)
	assert.Equal(t, OutcomeAmbiguous, outcome)
}

func TestResolvePicksBestOfMany(t *testing.T) {
	r := newResolver()

	entries := []models.Entry{
		workEntry("close", "Acme Corp", "Engineer", "2020-01", "2021-12"),
		workEntry("closer", "Acme Corp", "Software Engineer", "2020-01", "2021-12"),
	}
	candidate := models.Candidate{
		Section: models.SectionWorkExperience,
		Fields: models.WorkExperienceFields{
			Company:   "Acme Corp",
			Title:     "Software Engineer",
			StartDate: models.ParseDate("2020-01"),
			EndDate:   datePtr(models.ParseDate("2021-12")),
		},
	}

	_, best := r.Resolve(context.Background(), candidate, entries, now)
	require.NotNil(t, best)
	assert.Equal(t, "closer", best.Entry.ID)
}
