package entry

import (
	"context"
	"time"

	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/normalizers"
)

// Row structs mirror the per-section tables. Entries are reassembled from
// them so the rest of the service only sees models.Entry.

type workRow struct {
	ID         string            `db:"id"`
	ProfileID  string            `db:"profile_id"`
	Company    string            `db:"company"`
	Title      string            `db:"title"`
	StartDate  models.Date       `db:"start_date"`
	EndDate    *models.Date      `db:"end_date"`
	Bullets    models.TextList   `db:"bullets"`
	SkillTags  models.TextList   `db:"skill_tags"`
	OrderIndex int               `db:"order_index"`
	Provenance models.Provenance `db:"provenance"`
	CreatedAt  time.Time         `db:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at"`
}

type educationRow struct {
	ID          string            `db:"id"`
	ProfileID   string            `db:"profile_id"`
	Institution string            `db:"institution"`
	Degree      string            `db:"degree"`
	Field       string            `db:"field"`
	StartDate   models.Date       `db:"start_date"`
	EndDate     *models.Date      `db:"end_date"`
	Bullets     models.TextList   `db:"bullets"`
	OrderIndex  int               `db:"order_index"`
	Provenance  models.Provenance `db:"provenance"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

type projectRow struct {
	ID         string            `db:"id"`
	ProfileID  string            `db:"profile_id"`
	Name       string            `db:"name"`
	Bullets    models.TextList   `db:"bullets"`
	OrderIndex int               `db:"order_index"`
	Provenance models.Provenance `db:"provenance"`
	CreatedAt  time.Time         `db:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at"`
}

type certificationRow struct {
	ID         string            `db:"id"`
	ProfileID  string            `db:"profile_id"`
	Name       string            `db:"name"`
	Issuer     string            `db:"issuer"`
	Year       int               `db:"year"`
	OrderIndex int               `db:"order_index"`
	Provenance models.Provenance `db:"provenance"`
	CreatedAt  time.Time         `db:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at"`
}

type skillRow struct {
	ID             string            `db:"id"`
	ProfileID      string            `db:"profile_id"`
	Name           string            `db:"name"`
	NormalizedName string            `db:"normalized_name"`
	Provenance     models.Provenance `db:"provenance"`
	CreatedAt      time.Time         `db:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at"`
}

func columnsFor(section models.SectionType) []string {
	switch section {
	case models.SectionWorkExperience:
		return []string{"id", "profile_id", "company", "title", "start_date", "end_date", "bullets", "skill_tags", "order_index", "provenance", "created_at", "updated_at"}
	case models.SectionEducation:
		return []string{"id", "profile_id", "institution", "degree", "field", "start_date", "end_date", "bullets", "order_index", "provenance", "created_at", "updated_at"}
	case models.SectionProject:
		return []string{"id", "profile_id", "name", "bullets", "order_index", "provenance", "created_at", "updated_at"}
	case models.SectionCertification:
		return []string{"id", "profile_id", "name", "issuer", "year", "order_index", "provenance", "created_at", "updated_at"}
	case models.SectionSkill:
		return []string{"id", "profile_id", "name", "normalized_name", "provenance", "created_at", "updated_at"}
	}
	return nil
}

// normalizeEnd maps an end date scanned from a NULL or empty column back to
// nil, so "still ongoing" looks the same whether the row was just built or
// read back.
func normalizeEnd(d *models.Date) *models.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func (r *Repository) selectEntries(ctx context.Context, section models.SectionType, query string, args []interface{}) ([]models.Entry, error) {
	q := r.db.Querier(ctx)

	switch section {
	case models.SectionWorkExperience:
		var rows []workRow
		if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		out := make([]models.Entry, 0, len(rows))
		for _, row := range rows {
			out = append(out, models.Entry{
				ID:         row.ID,
				ProfileID:  row.ProfileID,
				SectionTyp: section,
				OrderIndex: row.OrderIndex,
				Provenance: row.Provenance,
				CreatedAt:  row.CreatedAt,
				UpdatedAt:  row.UpdatedAt,
				Fields: models.WorkExperienceFields{
					Company:   row.Company,
					Title:     row.Title,
					StartDate: row.StartDate,
					EndDate:   normalizeEnd(row.EndDate),
					Bullets:   row.Bullets,
					SkillTags: row.SkillTags,
				},
			})
		}
		return out, nil
	case models.SectionEducation:
		var rows []educationRow
		if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		out := make([]models.Entry, 0, len(rows))
		for _, row := range rows {
			out = append(out, models.Entry{
				ID:         row.ID,
				ProfileID:  row.ProfileID,
				SectionTyp: section,
				OrderIndex: row.OrderIndex,
				Provenance: row.Provenance,
				CreatedAt:  row.CreatedAt,
				UpdatedAt:  row.UpdatedAt,
				Fields: models.EducationFields{
					Institution: row.Institution,
					Degree:      row.Degree,
					Field:       row.Field,
					StartDate:   row.StartDate,
					EndDate:     normalizeEnd(row.EndDate),
					Bullets:     row.Bullets,
				},
			})
		}
		return out, nil
	case models.SectionProject:
		var rows []projectRow
		if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		out := make([]models.Entry, 0, len(rows))
		for _, row := range rows {
			out = append(out, models.Entry{
				ID:         row.ID,
				ProfileID:  row.ProfileID,
				SectionTyp: section,
				OrderIndex: row.OrderIndex,
				Provenance: row.Provenance,
				CreatedAt:  row.CreatedAt,
				UpdatedAt:  row.UpdatedAt,
				Fields: models.ProjectFields{
					Name:    row.Name,
					Bullets: row.Bullets,
				},
			})
		}
		return out, nil
	case models.SectionCertification:
		var rows []certificationRow
		if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		out := make([]models.Entry, 0, len(rows))
		for _, row := range rows {
			out = append(out, models.Entry{
				ID:         row.ID,
				ProfileID:  row.ProfileID,
				SectionTyp: section,
				OrderIndex: row.OrderIndex,
				Provenance: row.Provenance,
				CreatedAt:  row.CreatedAt,
				UpdatedAt:  row.UpdatedAt,
				Fields: models.CertificationFields{
					Name:   row.Name,
					Issuer: row.Issuer,
					Year:   row.Year,
				},
			})
		}
		return out, nil
	case models.SectionSkill:
		var rows []skillRow
		if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		out := make([]models.Entry, 0, len(rows))
		for _, row := range rows {
			out = append(out, models.Entry{
				ID:         row.ID,
				ProfileID:  row.ProfileID,
				SectionTyp: section,
				Provenance: row.Provenance,
				CreatedAt:  row.CreatedAt,
				UpdatedAt:  row.UpdatedAt,
				Fields:     models.SkillFields{Name: row.Name},
			})
		}
		return out, nil
	}
	return nil, models.ErrUnknownSection(section)
}

func insertValues(entry *models.Entry) ([]string, []interface{}, error) {
	switch f := entry.Fields.(type) {
	case models.WorkExperienceFields:
		return []string{"id", "profile_id", "company", "title", "start_date", "end_date", "bullets", "skill_tags", "order_index", "provenance"},
			[]interface{}{entry.ID, entry.ProfileID, f.Company, f.Title, f.StartDate, f.EndDate, f.Bullets, f.SkillTags, entry.OrderIndex, entry.Provenance}, nil
	case models.EducationFields:
		return []string{"id", "profile_id", "institution", "degree", "field", "start_date", "end_date", "bullets", "order_index", "provenance"},
			[]interface{}{entry.ID, entry.ProfileID, f.Institution, f.Degree, f.Field, f.StartDate, f.EndDate, f.Bullets, entry.OrderIndex, entry.Provenance}, nil
	case models.ProjectFields:
		return []string{"id", "profile_id", "name", "bullets", "order_index", "provenance"},
			[]interface{}{entry.ID, entry.ProfileID, f.Name, f.Bullets, entry.OrderIndex, entry.Provenance}, nil
	case models.CertificationFields:
		return []string{"id", "profile_id", "name", "issuer", "year", "order_index", "provenance"},
			[]interface{}{entry.ID, entry.ProfileID, f.Name, f.Issuer, f.Year, entry.OrderIndex, entry.Provenance}, nil
	case models.SkillFields:
		return []string{"id", "profile_id", "name", "normalized_name", "provenance"},
			[]interface{}{entry.ID, entry.ProfileID, f.Name, normalizers.NormalizeSkill(f.Name), entry.Provenance}, nil
	}
	return nil, nil, models.ErrUnknownSection(entry.SectionTyp)
}

func updateAssignments(entry *models.Entry) (map[string]interface{}, error) {
	switch f := entry.Fields.(type) {
	case models.WorkExperienceFields:
		return map[string]interface{}{
			"company": f.Company, "title": f.Title,
			"start_date": f.StartDate, "end_date": f.EndDate,
			"bullets": f.Bullets, "skill_tags": f.SkillTags,
		}, nil
	case models.EducationFields:
		return map[string]interface{}{
			"institution": f.Institution, "degree": f.Degree, "field": f.Field,
			"start_date": f.StartDate, "end_date": f.EndDate,
			"bullets": f.Bullets,
		}, nil
	case models.ProjectFields:
		return map[string]interface{}{"name": f.Name, "bullets": f.Bullets}, nil
	case models.CertificationFields:
		return map[string]interface{}{"name": f.Name, "issuer": f.Issuer, "year": f.Year}, nil
	case models.SkillFields:
		return map[string]interface{}{"name": f.Name, "normalized_name": normalizers.NormalizeSkill(f.Name)}, nil
	}
	return nil, models.ErrUnknownSection(entry.SectionTyp)
}
