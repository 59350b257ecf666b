package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is a stored profile entry: the envelope shared by every section plus
// the section-typed fields.
type Entry struct {
	ID         string      `json:"id" db:"id"`
	ProfileID  string      `json:"profile_id" db:"profile_id"`
	SectionTyp SectionType `json:"section" db:"-"`
	OrderIndex int         `json:"order_index" db:"order_index"`
	Provenance Provenance  `json:"provenance" db:"provenance"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`

	Fields SectionFields `json:"fields" db:"-"`
}

// Section returns the entry's section type.
func (e *Entry) Section() SectionType {
	return e.SectionTyp
}

// Candidate is a single extracted record awaiting consolidation.
type Candidate struct {
	Section  SectionType   `json:"section"`
	UploadID string        `json:"upload_id"`
	Fields   SectionFields `json:"fields"`
}

// CandidateBatch is the output of one CV extraction for one profile, grouped
// per section the way the extraction service emits it.
type CandidateBatch struct {
	ProfileID       string                 `json:"profile_id" validate:"required"`
	UploadID        string                 `json:"upload_id" validate:"required"`
	WorkExperiences []WorkExperienceFields `json:"work_experiences"`
	Education       []EducationFields      `json:"education"`
	Projects        []ProjectFields        `json:"projects"`
	Certifications  []CertificationFields  `json:"certifications"`
	Skills          []string               `json:"skills"`
}

// Candidates flattens the batch into per-record candidates, in section order.
func (b *CandidateBatch) Candidates() []Candidate {
	out := make([]Candidate, 0, b.Len())
	for _, f := range b.WorkExperiences {
		out = append(out, Candidate{Section: SectionWorkExperience, UploadID: b.UploadID, Fields: f})
	}
	for _, f := range b.Education {
		out = append(out, Candidate{Section: SectionEducation, UploadID: b.UploadID, Fields: f})
	}
	for _, f := range b.Projects {
		out = append(out, Candidate{Section: SectionProject, UploadID: b.UploadID, Fields: f})
	}
	for _, f := range b.Certifications {
		out = append(out, Candidate{Section: SectionCertification, UploadID: b.UploadID, Fields: f})
	}
	for _, name := range b.Skills {
		out = append(out, Candidate{Section: SectionSkill, UploadID: b.UploadID, Fields: SkillFields{Name: name}})
	}
	return out
}

// Len returns the total number of candidate records in the batch.
func (b *CandidateBatch) Len() int {
	return len(b.WorkExperiences) + len(b.Education) + len(b.Projects) +
		len(b.Certifications) + len(b.Skills)
}

// Provenance is the set of upload IDs that contributed to an entry. Stored as
// a jsonb array, kept sorted and deduplicated.
type Provenance []string

// Add returns the provenance with uploadID included, preserving order and
// skipping duplicates.
func (p Provenance) Add(uploadID string) Provenance {
	if uploadID == "" {
		return p
	}
	for _, existing := range p {
		if existing == uploadID {
			return p
		}
	}
	return append(p, uploadID)
}

func (p Provenance) Value() (driver.Value, error) {
	if p == nil {
		p = Provenance{}
	}
	return json.Marshal(p)
}

func (p *Provenance) Scan(src interface{}) error {
	return scanJSON(src, p, "Provenance")
}

// TextList is a jsonb-backed ordered list of strings, used for bullets and
// skill tags.
type TextList []string

func (l TextList) Value() (driver.Value, error) {
	if l == nil {
		l = TextList{}
	}
	return json.Marshal(l)
}

func (l *TextList) Scan(src interface{}) error {
	return scanJSON(src, l, "TextList")
}

func scanJSON(src, dest interface{}, name string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %s", src, name)
	}
}
