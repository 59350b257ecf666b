package consolidation

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/careerark/arc/pkg/models"
)

// memDB is an in-memory implementation of the engine's stores with
// snapshot-based transactions, so abort behavior can be tested without
// postgres.
type memDB struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	entries  map[string][]models.Entry // profileID|section -> ordered entries
	reviews  map[string]models.ReviewItem
	tasks    map[string]models.ImportTask

	failInsertAfter int  // fail entry inserts once this many happened, 0 = never
	inserts         int
	onInsert        func() // called after each successful insert
}

func newMemDB(profileIDs ...string) *memDB {
	db := &memDB{
		profiles: map[string]models.Profile{},
		entries:  map[string][]models.Entry{},
		reviews:  map[string]models.ReviewItem{},
		tasks:    map[string]models.ImportTask{},
	}
	for _, id := range profileIDs {
		db.profiles[id] = models.Profile{ID: id, UserID: "user-" + id, Name: "Test User"}
	}
	return db
}

func sectionKey(profileID string, section models.SectionType) string {
	return profileID + "|" + string(section)
}

func cloneEntry(e models.Entry) models.Entry {
	e.Provenance = append(models.Provenance{}, e.Provenance...)
	switch f := e.Fields.(type) {
	case models.WorkExperienceFields:
		f.Bullets = append(models.TextList{}, f.Bullets...)
		f.SkillTags = append(models.TextList{}, f.SkillTags...)
		e.Fields = f
	case models.EducationFields:
		f.Bullets = append(models.TextList{}, f.Bullets...)
		e.Fields = f
	case models.ProjectFields:
		f.Bullets = append(models.TextList{}, f.Bullets...)
		e.Fields = f
	}
	return e
}

// TxRunner

func (db *memDB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	db.mu.Lock()
	snapEntries := map[string][]models.Entry{}
	for k, list := range db.entries {
		cp := make([]models.Entry, len(list))
		for i, e := range list {
			cp[i] = cloneEntry(e)
		}
		snapEntries[k] = cp
	}
	snapReviews := map[string]models.ReviewItem{}
	for k, v := range db.reviews {
		snapReviews[k] = v
	}
	snapProfiles := map[string]models.Profile{}
	for k, v := range db.profiles {
		snapProfiles[k] = v
	}
	db.mu.Unlock()

	if err := fn(ctx); err != nil {
		db.mu.Lock()
		db.entries = snapEntries
		db.reviews = snapReviews
		db.profiles = snapProfiles
		db.mu.Unlock()
		return err
	}
	return nil
}

// ProfileStore

func (db *memDB) Get(ctx context.Context, profileID string) (*models.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.profiles[profileID]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "profile %s not found", profileID)
	}
	return &p, nil
}

func (db *memDB) Touch(ctx context.Context, profileID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.profiles[profileID]
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "profile %s not found", profileID)
	}
	p.UpdatedAt = time.Now()
	db.profiles[profileID] = p
	return nil
}

// EntryStore

type entryStore struct{ *memDB }

func (db *memDB) entryStore() *entryStore { return &entryStore{db} }

func (s *entryStore) List(ctx context.Context, profileID string, section models.SectionType) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[sectionKey(profileID, section)]
	out := make([]models.Entry, len(list))
	for i, e := range list {
		out[i] = cloneEntry(e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s *entryStore) Get(ctx context.Context, profileID string, section models.SectionType, entryID string) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[sectionKey(profileID, section)] {
		if e.ID == entryID {
			cp := cloneEntry(e)
			return &cp, nil
		}
	}
	return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entryID)
}

func (s *entryStore) Insert(ctx context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.failInsertAfter > 0 && s.inserts > s.failInsertAfter {
		return httperror.NewHTTPError(http.StatusInternalServerError, "insert failed")
	}
	key := sectionKey(entry.ProfileID, entry.SectionTyp)
	s.entries[key] = append(s.entries[key], cloneEntry(*entry))
	if s.onInsert != nil {
		s.onInsert()
	}
	return nil
}

func (s *entryStore) Update(ctx context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sectionKey(entry.ProfileID, entry.SectionTyp)
	for i, e := range s.entries[key] {
		if e.ID == entry.ID {
			s.entries[key][i] = cloneEntry(*entry)
			return nil
		}
	}
	return httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entry.ID)
}

func (s *entryStore) Delete(ctx context.Context, profileID string, section models.SectionType, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sectionKey(profileID, section)
	for i, e := range s.entries[key] {
		if e.ID == entryID {
			s.entries[key] = append(s.entries[key][:i], s.entries[key][i+1:]...)
			return nil
		}
	}
	return httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entryID)
}

// ordering.Store

func (s *entryStore) Count(ctx context.Context, profileID string, section models.SectionType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[sectionKey(profileID, section)]), nil
}

func (s *entryStore) IndexOf(ctx context.Context, profileID string, section models.SectionType, entryID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[sectionKey(profileID, section)] {
		if e.ID == entryID {
			return e.OrderIndex, nil
		}
	}
	return 0, httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entryID)
}

func (s *entryStore) ShiftRange(ctx context.Context, profileID string, section models.SectionType, from, to, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sectionKey(profileID, section)
	for i, e := range s.entries[key] {
		if e.OrderIndex >= from && e.OrderIndex <= to {
			s.entries[key][i].OrderIndex += delta
		}
	}
	return nil
}

func (s *entryStore) SetIndex(ctx context.Context, profileID string, section models.SectionType, entryID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sectionKey(profileID, section)
	for i, e := range s.entries[key] {
		if e.ID == entryID {
			s.entries[key][i].OrderIndex = index
			return nil
		}
	}
	return httperror.NewHTTPErrorf(http.StatusNotFound, "entry %s not found", entryID)
}

// ReviewStore

type reviewStore struct{ *memDB }

func (db *memDB) reviewStore() *reviewStore { return &reviewStore{db} }

func (s *reviewStore) Enqueue(ctx context.Context, item *models.ReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[item.ID] = *item
	return nil
}

func (s *reviewStore) Get(ctx context.Context, id string) (*models.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.reviews[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "review %s not found", id)
	}
	return &item, nil
}

func (s *reviewStore) SetStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.reviews[id]
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "review %s not found", id)
	}
	item.Status = status
	now := time.Now()
	item.ResolvedAt = &now
	s.reviews[id] = item
	return nil
}

func (s *reviewStore) ListPending(ctx context.Context, profileID string) ([]models.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ReviewItem
	for _, item := range s.reviews {
		if item.ProfileID == profileID && item.Status == models.ReviewStatusPending {
			out = append(out, item)
		}
	}
	return out, nil
}

// TaskStore

type taskStore struct{ *memDB }

func (db *memDB) taskStore() *taskStore { return &taskStore{db} }

func (s *taskStore) Create(ctx context.Context, task *models.ImportTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

func (s *taskStore) Finish(ctx context.Context, task *models.ImportTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

func (s *taskStore) Get(ctx context.Context, id string) (*models.ImportTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "import task %s not found", id)
	}
	return &task, nil
}
