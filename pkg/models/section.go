package models

// SectionType identifies which profile section an entry belongs to.
type SectionType string

const (
	SectionWorkExperience SectionType = "work_experience"
	SectionEducation      SectionType = "education"
	SectionProject        SectionType = "project"
	SectionCertification  SectionType = "certification"
	SectionSkill          SectionType = "skill"
)

// SectionTypes lists every section in the order batches are processed.
var SectionTypes = []SectionType{
	SectionWorkExperience,
	SectionEducation,
	SectionProject,
	SectionCertification,
	SectionSkill,
}

// IsValid returns true if the section type is one of the known sections.
func (s SectionType) IsValid() bool {
	switch s {
	case SectionWorkExperience, SectionEducation, SectionProject, SectionCertification, SectionSkill:
		return true
	}
	return false
}

// Ordered returns true for sections whose entries carry a user-facing order
// index. Skills are an unordered set.
func (s SectionType) Ordered() bool {
	return s != SectionSkill
}

// SectionFields is the typed payload of a profile entry. Each section has its
// own concrete implementation.
type SectionFields interface {
	Section() SectionType
}

// WorkExperienceFields holds the fields of a single work experience entry.
type WorkExperienceFields struct {
	Company   string   `json:"company" db:"company" validate:"required"`
	Title     string   `json:"title" db:"title" validate:"required"`
	StartDate Date     `json:"start_date" db:"start_date"`
	EndDate   *Date    `json:"end_date" db:"end_date"`
	Bullets   TextList `json:"bullets" db:"bullets"`
	SkillTags TextList `json:"skill_tags" db:"skill_tags"`
}

func (WorkExperienceFields) Section() SectionType { return SectionWorkExperience }

// EducationFields holds the fields of a single education entry.
type EducationFields struct {
	Institution string   `json:"institution" db:"institution" validate:"required"`
	Degree      string   `json:"degree" db:"degree"`
	Field       string   `json:"field" db:"field"`
	StartDate   Date     `json:"start_date" db:"start_date"`
	EndDate     *Date    `json:"end_date" db:"end_date"`
	Bullets     TextList `json:"bullets" db:"bullets"`
}

func (EducationFields) Section() SectionType { return SectionEducation }

// ProjectFields holds the fields of a single project entry.
type ProjectFields struct {
	Name    string   `json:"name" db:"name" validate:"required"`
	Bullets TextList `json:"bullets" db:"bullets"`
}

func (ProjectFields) Section() SectionType { return SectionProject }

// CertificationFields holds the fields of a single certification entry.
type CertificationFields struct {
	Name   string `json:"name" db:"name" validate:"required"`
	Issuer string `json:"issuer" db:"issuer"`
	Year   int    `json:"year" db:"year"`
}

func (CertificationFields) Section() SectionType { return SectionCertification }

// SkillFields holds a single skill. Skills match on normalized identity only.
type SkillFields struct {
	Name string `json:"name" db:"name" validate:"required"`
}

func (SkillFields) Section() SectionType { return SectionSkill }
