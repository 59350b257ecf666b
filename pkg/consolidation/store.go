package consolidation

import (
	"context"

	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/ordering"
)

// ProfileStore reads and touches profile aggregate roots.
type ProfileStore interface {
	Get(ctx context.Context, profileID string) (*models.Profile, error)
	Touch(ctx context.Context, profileID string) error
}

// EntryStore reads and writes section entries. List returns ordered sections
// sorted by order index.
type EntryStore interface {
	ordering.Store
	List(ctx context.Context, profileID string, section models.SectionType) ([]models.Entry, error)
	Get(ctx context.Context, profileID string, section models.SectionType, entryID string) (*models.Entry, error)
	Insert(ctx context.Context, entry *models.Entry) error
	Update(ctx context.Context, entry *models.Entry) error
	Delete(ctx context.Context, profileID string, section models.SectionType, entryID string) error
}

// ReviewStore persists ambiguous matches awaiting a human decision.
type ReviewStore interface {
	Enqueue(ctx context.Context, item *models.ReviewItem) error
	Get(ctx context.Context, id string) (*models.ReviewItem, error)
	SetStatus(ctx context.Context, id, status string) error
	ListPending(ctx context.Context, profileID string) ([]models.ReviewItem, error)
}

// TaskStore tracks import tasks. Task rows are written outside the
// consolidation transaction so an aborted run still leaves a record.
type TaskStore interface {
	Create(ctx context.Context, task *models.ImportTask) error
	Finish(ctx context.Context, task *models.ImportTask) error
	Get(ctx context.Context, id string) (*models.ImportTask, error)
}

// TxRunner runs a function inside one database transaction carried on the
// context.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Reporter is notified after a consolidation run commits.
type Reporter interface {
	ConsolidationCompleted(ctx context.Context, report *models.ConsolidationReport)
}
