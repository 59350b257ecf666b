package consolidation

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/careerark/arc/pkg/matching"
	"github.com/careerark/arc/pkg/merging"
	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/scoring"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(db *memDB) *Engine {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	scorer := scoring.NewScorer()
	return NewEngine(
		logger,
		db,
		db,
		db.entryStore(),
		db.reviewStore(),
		db.taskStore(),
		matching.NewResolver(logger, scorer, matching.DefaultConfig()),
		merging.NewFieldMerger(scorer, merging.DefaultBulletThreshold),
		nil,
	)
}

func datePtr(d models.Date) *models.Date { return &d }

func acmeJob() models.WorkExperienceFields {
	return models.WorkExperienceFields{
		Company:   "Acme Corp",
		Title:     "Software Engineer",
		StartDate: models.ParseDate("2020-01"),
		EndDate:   datePtr(models.ParseDate("2021-12")),
		Bullets:   models.TextList{"Built the ingestion API"},
	}
}

func globexJob() models.WorkExperienceFields {
	return models.WorkExperienceFields{
		Company:   "Globex",
		Title:     "Data Analyst",
		StartDate: models.ParseDate("2017-03"),
		EndDate:   datePtr(models.ParseDate("2019-11")),
	}
}

func TestConsolidateIntoEmptyProfile(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	batch := &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "upload-1",
		WorkExperiences: []models.WorkExperienceFields{acmeJob(), globexJob()},
		Education: []models.EducationFields{{
			Institution: "State University",
			Degree:      "BSc",
			Field:       "Computer Science",
			StartDate:   models.ParseDate("2013-09"),
			EndDate:     datePtr(models.ParseDate("2017-06")),
		}},
		Skills: []string{"Go", "PostgreSQL"},
	}

	report, err := e.Consolidate(context.Background(), batch)
	require.NoError(t, err)

	added, merged, flagged, skipped := report.Counts()
	assert.Equal(t, 5, added)
	assert.Zero(t, merged+flagged+skipped)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 0, jobs[0].OrderIndex)
	assert.Equal(t, 1, jobs[1].OrderIndex)
	assert.Equal(t, models.Provenance{"upload-1"}, jobs[0].Provenance)

	task, err := db.taskStore().Get(context.Background(), report.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCommitted, task.Status)
	assert.Equal(t, 5, task.Added)
	assert.NotEmpty(t, task.Fingerprint)
}

// A re-extraction of the same job under different spelling merges into the
// existing entry instead of duplicating it.
func TestConsolidateMergesVariantSpelling(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	seed := &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "upload-1",
		WorkExperiences: []models.WorkExperienceFields{acmeJob()},
	}
	_, err := e.Consolidate(context.Background(), seed)
	require.NoError(t, err)

	variant := &models.CandidateBatch{
		ProfileID: "p1",
		UploadID:  "upload-2",
		WorkExperiences: []models.WorkExperienceFields{{
			Company:   "ACME CORP.",
			Title:     "Engineer",
			StartDate: models.ParseDate("2020-01"),
			EndDate:   datePtr(models.ParseDate("2021-12")),
			Bullets:   models.TextList{"Built the ingestion API.", "Mentored two juniors"},
		}},
	}
	report, err := e.Consolidate(context.Background(), variant)
	require.NoError(t, err)

	assert.Empty(t, report.Added)
	require.Len(t, report.Merged, 1)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	fields := jobs[0].Fields.(models.WorkExperienceFields)
	assert.Equal(t, models.TextList{"Built the ingestion API", "Mentored two juniors"}, fields.Bullets)
	assert.Equal(t, models.Provenance{"upload-1", "upload-2"}, jobs[0].Provenance)
}

// New jobs land at the end of the section; existing order is untouched.
func TestConsolidateAppendsNewEntries(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	_, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "upload-1",
		WorkExperiences: []models.WorkExperienceFields{acmeJob()},
	})
	require.NoError(t, err)

	_, err = e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "upload-2",
		WorkExperiences: []models.WorkExperienceFields{globexJob()},
	})
	require.NoError(t, err)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Acme Corp", jobs[0].Fields.(models.WorkExperienceFields).Company)
	assert.Equal(t, "Globex", jobs[1].Fields.(models.WorkExperienceFields).Company)
}

// An ambiguous match is parked for review: no merge, no new entry.
func TestConsolidateFlagsAmbiguousMatch(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

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
		}},
	})
	require.NoError(t, err)

	require.Len(t, report.Flagged, 1)
	assert.Empty(t, report.Added)
	assert.Empty(t, report.Merged)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	pending, err := e.PendingReviews(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, report.Flagged[0].ReviewID, pending[0].ID)
	assert.Equal(t, jobs[0].ID, pending[0].BestMatchID)
}

// Two plausible homes for one candidate still park exactly one review item,
// pointing at the higher-scoring entry.
func TestConsolidateFlagsBestOfTwoAmbiguous(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	overlapping := models.Entry{
		ID:         "job-overlap",
		ProfileID:  "p1",
		SectionTyp: models.SectionWorkExperience,
		OrderIndex: 0,
		Fields: models.WorkExperienceFields{
			Company:   "Acme Corp",
			Title:     "Product Manager",
			StartDate: models.ParseDate("2020-07"),
			EndDate:   datePtr(models.ParseDate("2022-01")),
		},
	}
	disjoint := models.Entry{
		ID:         "job-disjoint",
		ProfileID:  "p1",
		SectionTyp: models.SectionWorkExperience,
		OrderIndex: 1,
		Fields: models.WorkExperienceFields{
			Company:   "Acme Corp",
			Title:     "Product Manager",
			StartDate: models.ParseDate("2022-06"),
			EndDate:   datePtr(models.ParseDate("2023-06")),
		},
	}
	require.NoError(t, db.entryStore().Insert(context.Background(), &overlapping))
	require.NoError(t, db.entryStore().Insert(context.Background(), &disjoint))

	report, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID: "p1",
		UploadID:  "upload-2",
		WorkExperiences: []models.WorkExperienceFields{{
			Company:   "Acme Corp",
			Title:     "Product Manager",
			StartDate: models.ParseDate("2020-01"),
			EndDate:   datePtr(models.ParseDate("2021-01")),
		}},
	})
	require.NoError(t, err)

	require.Len(t, report.Flagged, 1)
	assert.Empty(t, report.Added)
	assert.Empty(t, report.Merged)
	assert.Equal(t, "job-overlap", report.Flagged[0].BestMatchID)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	pending, err := e.PendingReviews(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "job-overlap", pending[0].BestMatchID)
}

// Replaying the exact same batch changes nothing.
func TestConsolidateIdempotent(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	batch := &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "upload-1",
		WorkExperiences: []models.WorkExperienceFields{acmeJob(), globexJob()},
		Skills:          []string{"Go"},
	}
	first, err := e.Consolidate(context.Background(), batch)
	require.NoError(t, err)

	second, err := e.Consolidate(context.Background(), batch)
	require.NoError(t, err)

	assert.Len(t, first.Added, 3)
	assert.Empty(t, second.Added)
	assert.Len(t, second.Merged, 3)
	assert.Empty(t, second.Conflicts)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	// Same content, so both import tasks carry the same fingerprint.
	taskA, _ := db.taskStore().Get(context.Background(), first.TaskID)
	taskB, _ := db.taskStore().Get(context.Background(), second.TaskID)
	assert.Equal(t, taskA.Fingerprint, taskB.Fingerprint)
}

// A batch that lists the same job twice produces one entry.
func TestConsolidateDeduplicatesWithinBatch(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	report, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "upload-1",
		WorkExperiences: []models.WorkExperienceFields{acmeJob(), acmeJob()},
	})
	require.NoError(t, err)

	assert.Len(t, report.Added, 1)
	assert.Len(t, report.Merged, 1)
}

func TestConsolidateSkipsInvalidCandidates(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	report, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID: "p1",
		UploadID:  "upload-1",
		WorkExperiences: []models.WorkExperienceFields{
			{Title: "Ghost Job"}, // no company
			{
				Company:   "Acme Corp",
				Title:     "Engineer",
				StartDate: models.ParseDate("2021-01"),
				EndDate:   datePtr(models.ParseDate("2019-01")), // inverted range
			},
			globexJob(),
		},
	})
	require.NoError(t, err)

	require.Len(t, report.Skipped, 2)
	assert.Contains(t, report.Skipped[0].Reason, "required")
	assert.Equal(t, "end date before start date", report.Skipped[1].Reason)
	assert.Len(t, report.Added, 1)
}

func TestConsolidateRecordsConflicts(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	_, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID:      "p1",
		UploadID:       "upload-1",
		Certifications: []models.CertificationFields{{Name: "CKA", Issuer: "CNCF", Year: 2021}},
	})
	require.NoError(t, err)

	report, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID:      "p1",
		UploadID:       "upload-2",
		Certifications: []models.CertificationFields{{Name: "CKA", Issuer: "CNCF", Year: 2022}},
	})
	require.NoError(t, err)

	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "year", report.Conflicts[0].Field)
}

func TestConsolidateUnknownProfile(t *testing.T) {
	e := newTestEngine(newMemDB())

	_, err := e.Consolidate(context.Background(), &models.CandidateBatch{
		ProfileID: "missing",
		UploadID:  "upload-1",
		Skills:    []string{"Go"},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestConsolidateRejectsInvalidBatch(t *testing.T) {
	e := newTestEngine(newMemDB("p1"))

	_, err := e.Consolidate(context.Background(), &models.CandidateBatch{ProfileID: "p1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}

// A storage failure mid-batch rolls back everything and marks the task
// aborted.
func TestConsolidateAbortLeavesProfileUntouched(t *testing.T) {
	db := newMemDB("p1")
	db.failInsertAfter = 1
	e := newTestEngine(db)

	batch := &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "upload-1",
		WorkExperiences: []models.WorkExperienceFields{acmeJob(), globexJob()},
	}
	_, err := e.Consolidate(context.Background(), batch)
	require.Error(t, err)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	var aborted *models.ImportTask
	for id := range db.tasks {
		aborted, _ = db.taskStore().Get(context.Background(), id)
	}
	require.NotNil(t, aborted)
	assert.Equal(t, models.ImportStatusAborted, aborted.Status)
	require.NotNil(t, aborted.Error)
}

// Cancellation between candidates aborts the run and rolls back.
func TestConsolidateCancellation(t *testing.T) {
	db := newMemDB("p1")
	ctx, cancel := context.WithCancel(context.Background())
	db.onInsert = cancel
	e := newTestEngine(db)

	_, err := e.Consolidate(ctx, &models.CandidateBatch{
		ProfileID:       "p1",
		UploadID:        "upload-1",
		WorkExperiences: []models.WorkExperienceFields{acmeJob(), globexJob()},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

// Concurrent runs against the same profile serialize on the profile lock and
// end in the same state a sequential replay would.
func TestConsolidateConcurrentRunsSerialize(t *testing.T) {
	db := newMemDB("p1")
	e := newTestEngine(db)

	batch := func(upload string) *models.CandidateBatch {
		return &models.CandidateBatch{
			ProfileID:       "p1",
			UploadID:        upload,
			WorkExperiences: []models.WorkExperienceFields{acmeJob(), globexJob()},
			Skills:          []string{"Go", "PostgreSQL"},
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Consolidate(context.Background(), batch("upload-"+string(rune('a'+i))))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	jobs, err := e.ReadSection(context.Background(), "p1", models.SectionWorkExperience)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	skills, err := e.ReadSection(context.Background(), "p1", models.SectionSkill)
	require.NoError(t, err)
	assert.Len(t, skills, 2)
}

func TestProfileLocksContention(t *testing.T) {
	locks := NewProfileLocks()

	release, err := locks.Acquire(context.Background(), "p1")
	require.NoError(t, err)

	_, ok := locks.TryAcquire("p1")
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.Acquire(ctx, "p1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	release2, ok := locks.TryAcquire("p1")
	require.True(t, ok)
	release2()

	// Different profiles do not contend.
	releaseA, err := locks.Acquire(context.Background(), "a")
	require.NoError(t, err)
	releaseB, ok := locks.TryAcquire("b")
	require.True(t, ok)
	releaseA()
	releaseB()
}
