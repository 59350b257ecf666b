package consolidation

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerark/arc/pkg/matching"
	"github.com/careerark/arc/pkg/merging"
	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/scoring"
)

func seedJobs(t *testing.T, e *Engine, companies ...string) []models.Entry {
	t.Helper()

	fields := make([]models.WorkExperienceFields, len(companies))
	for i, company := range companies {
		fields[i] = models.WorkExperienceFields{
			Company:   company,
			Title:     "Engineer",
			StartDate: models.NewDate(2010+i*3, 1, 1),
			EndDate:   datePtr(models.NewDate(2012+i*3, 1, 1)),
		}
	}

	_, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "seed",
		WorkExperiences: fields,
	})
	require.NoError(t, err)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	require.Len(t, jobs, len(companies))
	return jobs
}

func companies(entries []models.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Fields.(models.WorkExperienceFields).Company
	}
	return out
}

func TestReorderMovesEntry(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))
	jobs := seedJobs(t, e, "Acme", "Globex", "Initech")

	require.NoError(t, e.Reorder(context.Background(), "p1", models.SectionWorkExperience, jobs[2].ID, 0))

	after, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Equal(t, []string{"Initech", "Acme", "Globex"}, companies(after))
}

func TestReorderUnknownEntry(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))
	seedJobs(t, e, "Acme")

	err := e.Reorder(context.Background(), "p1", models.SectionWorkExperience, "nope", 0)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestReorderSkillsRejected(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))

	err := e.Reorder(context.Background(), "p1", models.SectionSkill, "x", 0)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

func TestReorderConflictsWhileProfileLocked(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))
	jobs := seedJobs(t, e, "Acme", "Globex")

	release, err := e.locks.Acquire(context.Background(), "p1")
	require.NoError(t, err)
	defer release()

	err = e.Reorder(context.Background(), "p1", models.SectionWorkExperience, jobs[0].ID, 1)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestDeleteEntryClosesGap(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))
	jobs := seedJobs(t, e, "Acme", "Globex", "Initech")

	require.NoError(t, e.DeleteEntry(context.Background(), "p1", models.SectionWorkExperience, jobs[1].ID))

	after, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Initech"}, companies(after))
	assert.Equal(t, 0, after[0].OrderIndex)
	assert.Equal(t, 1, after[1].OrderIndex)
}

func flagAmbiguous(t *testing.T, e *Engine) (existing models.Entry, reviewID string) {
	t.Helper()

	_, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID: "p1",
		UploadID:  "upload-1",
		WorkExperiences: []models.WorkExperienceFields{{
			Company:   "Acme Corp",
			Title:     "Product Manager",
			StartDate: models.ParseDate("2020-01"),
			EndDate:   datePtr(models.ParseDate("2022-01")),
		}},
	})
	require.NoError(t, err)

	report, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID: "p1",
		UploadID:  "upload-2",
		WorkExperiences: []models.WorkExperienceFields{{
			Company:   "Acme Corp",
			Title:     "Data Scientist",
			StartDate: models.ParseDate("2020-06"),
			EndDate:   datePtr(models.ParseDate("2021-06")),
			Bullets:   models.TextList{"Shipped the forecasting model"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, report.Flagged, 1)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	return jobs[0], report.Flagged[0].ReviewID
}

func TestConfirmReviewMerges(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)
	existing, reviewID := flagAmbiguous(t, e)

	require.NoError(t, e.ConfirmReview(context.Background(), reviewID))

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, existing.ID, jobs[0].ID)

	fields := jobs[0].Fields.(models.WorkExperienceFields)
	assert.Contains(t, fields.Bullets, "Shipped the forecasting model")
	assert.Contains(t, jobs[0].Provenance, "upload-2")

	item, err := db.reviewStore().Get(context.Background(), reviewID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusConfirmed, item.Status)
	require.NotNil(t, item.ResolvedAt)
}

// A confirmed merge that had to keep existing values over incoming ones must
// leave a trace; the route discards the merge report.
func TestConfirmReviewLogsMergeConflicts(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, msg.Message)
	})

	db := newMemDB("p1")
	scorer := scoring.NewScorer()
	e := NewEngine(
		logger, db, db, db.entryStore(), db.reviewStore(), db.taskStore(),
		matching.NewResolver(logger, scorer, matching.DefaultConfig()),
		merging.NewFieldMerger(scorer, merging.DefaultBulletThreshold),
		nil,
	)

	// The parked candidate's title disagrees with the entry it resembles, so
	// the confirm merge records a conflict.
	_, reviewID := flagAmbiguous(t, e)
	require.NoError(t, e.ConfirmReview(context.Background(), reviewID))

	mu.Lock()
	defer mu.Unlock()
	logged := false
	for _, m := range messages {
		if strings.Contains(m, "conflicting fields") {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestRejectReviewAddsEntry(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)
	_, reviewID := flagAmbiguous(t, e)

	require.NoError(t, e.RejectReview(context.Background(), reviewID))

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 1, jobs[1].OrderIndex)
	assert.Equal(t, "Data Scientist", jobs[1].Fields.(models.WorkExperienceFields).Title)
}

func TestResolveReviewTwiceConflicts(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))
	_, reviewID := flagAmbiguous(t, e)

	require.NoError(t, e.RejectReview(context.Background(), reviewID))

	err := e.ConfirmReview(context.Background(), reviewID)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
}

func TestConfirmReviewFallsBackWhenMatchDeleted(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))
	existing, reviewID := flagAmbiguous(t, e)

	require.NoError(t, e.DeleteEntry(context.Background(), "p1", models.SectionWorkExperience, existing.ID))
	require.NoError(t, e.ConfirmReview(context.Background(), reviewID))

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Data Scientist", jobs[0].Fields.(models.WorkExperienceFields).Title)
	assert.Equal(t, 0, jobs[0].OrderIndex)
}

func TestReadSectionUnknownSection(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))

	_, err := e.ReadSection(context.Background(), "p1", "hobbies")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}
