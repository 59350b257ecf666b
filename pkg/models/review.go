package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Review item lifecycle.
const (
	ReviewStatusPending   = "pending"
	ReviewStatusConfirmed = "confirmed"
	ReviewStatusRejected  = "rejected"
)

// ReviewItem is an ambiguous match parked for a human decision: the candidate
// payload, the entry it most resembled, and the score that put it in the
// ambiguous band.
type ReviewItem struct {
	ID          string          `json:"id" db:"id"`
	ProfileID   string          `json:"profile_id" db:"profile_id"`
	Section     SectionType     `json:"section" db:"section"`
	Candidate   ReviewCandidate `json:"candidate" db:"candidate"`
	BestMatchID string          `json:"best_match_id" db:"best_match_id"`
	Score       float64         `json:"score" db:"score"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// ReviewCandidate is the candidate payload persisted with a review item. The
// section fields are kept as raw JSON so the row survives model changes.
type ReviewCandidate struct {
	UploadID string          `json:"upload_id"`
	Fields   json.RawMessage `json:"fields"`
}

func (c ReviewCandidate) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ReviewCandidate) Scan(src interface{}) error {
	return scanJSON(src, c, "ReviewCandidate")
}

// NewReviewCandidate snapshots a candidate for storage.
func NewReviewCandidate(candidate Candidate) (ReviewCandidate, error) {
	raw, err := json.Marshal(candidate.Fields)
	if err != nil {
		return ReviewCandidate{}, err
	}
	return ReviewCandidate{UploadID: candidate.UploadID, Fields: raw}, nil
}

// DecodeFields unmarshals the stored payload back into typed section fields.
func (i *ReviewItem) DecodeFields() (SectionFields, error) {
	return DecodeSectionFields(i.Section, i.Candidate.Fields)
}

// DecodeSectionFields unmarshals raw JSON into the concrete fields type for
// the given section.
func DecodeSectionFields(section SectionType, raw json.RawMessage) (SectionFields, error) {
	switch section {
	case SectionWorkExperience:
		var f WorkExperienceFields
		return f, json.Unmarshal(raw, &f)
	case SectionEducation:
		var f EducationFields
		return f, json.Unmarshal(raw, &f)
	case SectionProject:
		var f ProjectFields
		return f, json.Unmarshal(raw, &f)
	case SectionCertification:
		var f CertificationFields
		return f, json.Unmarshal(raw, &f)
	case SectionSkill:
		var f SkillFields
		return f, json.Unmarshal(raw, &f)
	}
	return nil, ErrUnknownSection(section)
}
