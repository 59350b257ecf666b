// Package merging folds a duplicate candidate into the entry it matched.
// Merging only ever enriches: existing values are never cleared, bullets are
// deduplicated instead of replaced, and scalar disagreements are recorded as
// conflicts.
package merging

import (
	"strconv"

	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/normalizers"
	"github.com/careerark/arc/pkg/scoring"
)

// Default near-duplicate threshold for description lines.
const DefaultBulletThreshold = 0.80

// Result reports what a merge changed.
type Result struct {
	Changed   bool
	Conflicts []models.FieldConflict
}

// FieldMerger handles field-level merge logic
type FieldMerger struct {
	scorer          *scoring.Scorer
	bulletThreshold float64
}

// NewFieldMerger creates a new FieldMerger
func NewFieldMerger(scorer *scoring.Scorer, bulletThreshold float64) *FieldMerger {
	if bulletThreshold <= 0 || bulletThreshold > 1 {
		bulletThreshold = DefaultBulletThreshold
	}
	return &FieldMerger{
		scorer:          scorer,
		bulletThreshold: bulletThreshold,
	}
}

// Merge folds candidate fields into an existing entry in place. The entry's
// order index is untouched: a merged entry keeps its position. Returns what
// changed and any scalar conflicts encountered.
func (m *FieldMerger) Merge(entry *models.Entry, candidate models.Candidate) (Result, error) {
	if entry.Fields == nil || candidate.Fields == nil ||
		entry.Fields.Section() != candidate.Fields.Section() {
		return Result{}, models.ErrUnknownSection(candidate.Section)
	}

	res := &Result{}

	switch existing := entry.Fields.(type) {
	case models.WorkExperienceFields:
		incoming := candidate.Fields.(models.WorkExperienceFields)
		entry.Fields = m.mergeWorkExperience(entry.ID, existing, incoming, res)
	case models.EducationFields:
		incoming := candidate.Fields.(models.EducationFields)
		entry.Fields = m.mergeEducation(entry.ID, existing, incoming, res)
	case models.ProjectFields:
		incoming := candidate.Fields.(models.ProjectFields)
		entry.Fields = m.mergeProject(entry.ID, existing, incoming, res)
	case models.CertificationFields:
		incoming := candidate.Fields.(models.CertificationFields)
		entry.Fields = m.mergeCertification(entry.ID, existing, incoming, res)
	case models.SkillFields:
		// Identity match: nothing to enrich beyond provenance.
	default:
		return Result{}, models.ErrUnknownSection(candidate.Section)
	}

	before := len(entry.Provenance)
	entry.Provenance = entry.Provenance.Add(candidate.UploadID)
	if len(entry.Provenance) != before {
		res.Changed = true
	}

	return *res, nil
}

func (m *FieldMerger) mergeWorkExperience(entryID string, existing, incoming models.WorkExperienceFields, res *Result) models.WorkExperienceFields {
	existing.Company = m.preferComplete(entryID, models.SectionWorkExperience, "company", existing.Company, incoming.Company, res)
	existing.Title = m.preferComplete(entryID, models.SectionWorkExperience, "title", existing.Title, incoming.Title, res)
	existing.StartDate = m.mergeStart(existing.StartDate, incoming.StartDate, res)
	existing.EndDate = m.mergeEnd(entryID, models.SectionWorkExperience, existing.StartDate, existing.EndDate, incoming.EndDate, res)
	existing.Bullets = m.mergeBullets(existing.Bullets, incoming.Bullets, res)
	existing.SkillTags = m.mergeTags(existing.SkillTags, incoming.SkillTags, res)
	return existing
}

func (m *FieldMerger) mergeEducation(entryID string, existing, incoming models.EducationFields, res *Result) models.EducationFields {
	existing.Institution = m.preferComplete(entryID, models.SectionEducation, "institution", existing.Institution, incoming.Institution, res)
	existing.Degree = m.preferComplete(entryID, models.SectionEducation, "degree", existing.Degree, incoming.Degree, res)
	existing.Field = m.preferComplete(entryID, models.SectionEducation, "field", existing.Field, incoming.Field, res)
	existing.StartDate = m.mergeStart(existing.StartDate, incoming.StartDate, res)
	existing.EndDate = m.mergeEnd(entryID, models.SectionEducation, existing.StartDate, existing.EndDate, incoming.EndDate, res)
	existing.Bullets = m.mergeBullets(existing.Bullets, incoming.Bullets, res)
	return existing
}

func (m *FieldMerger) mergeProject(entryID string, existing, incoming models.ProjectFields, res *Result) models.ProjectFields {
	existing.Name = m.preferComplete(entryID, models.SectionProject, "name", existing.Name, incoming.Name, res)
	existing.Bullets = m.mergeBullets(existing.Bullets, incoming.Bullets, res)
	return existing
}

func (m *FieldMerger) mergeCertification(entryID string, existing, incoming models.CertificationFields, res *Result) models.CertificationFields {
	existing.Name = m.preferComplete(entryID, models.SectionCertification, "name", existing.Name, incoming.Name, res)
	existing.Issuer = m.preferComplete(entryID, models.SectionCertification, "issuer", existing.Issuer, incoming.Issuer, res)
	if existing.Year == 0 && incoming.Year != 0 {
		existing.Year = incoming.Year
		res.Changed = true
	} else if existing.Year != 0 && incoming.Year != 0 && existing.Year != incoming.Year {
		res.Conflicts = append(res.Conflicts, models.FieldConflict{
			Section:    models.SectionCertification,
			EntryID:    entryID,
			Field:      "year",
			Existing:   strconv.Itoa(existing.Year),
			Incoming:   strconv.Itoa(incoming.Year),
			Resolution: "kept existing",
		})
	}
	return existing
}

// preferComplete keeps the existing value unless it is empty, or the incoming
// value is the same text with strictly more content (longer, same normalized
// form). Disagreements keep the existing value and record a conflict.
func (m *FieldMerger) preferComplete(entryID string, section models.SectionType, field, existing, incoming string, res *Result) string {
	switch {
	case incoming == "" || incoming == existing:
		return existing
	case existing == "":
		res.Changed = true
		return incoming
	}

	if normalizers.NormalizeTitle(existing) == normalizers.NormalizeTitle(incoming) {
		if len(incoming) > len(existing) {
			res.Changed = true
			return incoming
		}
		return existing
	}

	res.Conflicts = append(res.Conflicts, models.FieldConflict{
		Section:    section,
		EntryID:    entryID,
		Field:      field,
		Existing:   existing,
		Incoming:   incoming,
		Resolution: "kept existing",
	})
	return existing
}

// mergeStart fills a missing or invalid start date, and prefers the earlier
// of two valid ones. A CV rarely understates tenure.
func (m *FieldMerger) mergeStart(existing, incoming models.Date, res *Result) models.Date {
	switch {
	case incoming.IsZero() || !incoming.Valid:
		return existing
	case existing.IsZero() || !existing.Valid:
		res.Changed = true
		return incoming
	case incoming.Before(existing):
		res.Changed = true
		return incoming
	}
	return existing
}

// mergeEnd fills a missing end date, and extends to the later of two valid
// ones. An existing end date is never cleared, and an incoming end earlier
// than the merged start is a conflict, not a merge: accepting it would leave
// the entry ending before it starts.
func (m *FieldMerger) mergeEnd(entryID string, section models.SectionType, start models.Date, existing, incoming *models.Date, res *Result) *models.Date {
	switch {
	case incoming == nil:
		// A missing end date is absent data, not an ongoing claim strong
		// enough to clear a concrete one.
		return existing
	case !incoming.Valid:
		return existing
	}

	if start.Valid && incoming.Before(start) {
		var existingRaw string
		if existing != nil {
			existingRaw = existing.Raw
		}
		res.Conflicts = append(res.Conflicts, models.FieldConflict{
			Section:    section,
			EntryID:    entryID,
			Field:      "end_date",
			Existing:   existingRaw,
			Incoming:   incoming.Raw,
			Resolution: "kept existing",
		})
		return existing
	}

	switch {
	case existing == nil || !existing.Valid:
		res.Changed = true
		return incoming
	case existing.Before(*incoming):
		res.Changed = true
		return incoming
	}
	return existing
}

// mergeBullets appends incoming lines that are not near-duplicates of any
// existing line. Existing lines are never removed or reordered.
func (m *FieldMerger) mergeBullets(existing, incoming models.TextList, res *Result) models.TextList {
	for _, line := range incoming {
		if normalizers.NormalizeBullet(line) == "" {
			continue
		}
		dup := false
		for _, have := range existing {
			if m.scorer.BulletSimilarity(have, line) >= m.bulletThreshold {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, line)
			res.Changed = true
		}
	}
	return existing
}

// mergeTags unions skill tags on normalized identity.
func (m *FieldMerger) mergeTags(existing, incoming models.TextList, res *Result) models.TextList {
	seen := make(map[string]bool, len(existing))
	for _, tag := range existing {
		seen[normalizers.NormalizeSkill(tag)] = true
	}
	for _, tag := range incoming {
		key := normalizers.NormalizeSkill(tag)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		existing = append(existing, tag)
		res.Changed = true
	}
	return existing
}
