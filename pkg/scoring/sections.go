package scoring

import (
	"time"

	"github.com/careerark/arc/pkg/models"
	"github.com/careerark/arc/pkg/normalizers"
)

// Axis names reported alongside candidate scores.
const (
	AxisOrganization = "organization"
	AxisTitle        = "title"
	AxisDates        = "dates"
	AxisName         = "name"
	AxisDescription  = "description"
	AxisIssuer       = "issuer"
	AxisYear         = "year"
	AxisIdentity     = "identity"
)

// Per-section axis weights. Organization dominates for dated sections, then
// the date range, then the title: two stints at the same company with
// different titles are more likely one job re-described than two jobs.
var sectionWeights = map[models.SectionType]map[string]float64{
	models.SectionWorkExperience: {
		AxisOrganization: 0.5,
		AxisDates:        0.3,
		AxisTitle:        0.2,
	},
	models.SectionEducation: {
		AxisOrganization: 0.5,
		AxisDates:        0.3,
		AxisTitle:        0.2,
	},
	models.SectionProject: {
		AxisName:        0.6,
		AxisDescription: 0.4,
	},
	models.SectionCertification: {
		AxisName:   0.55,
		AxisIssuer: 0.35,
		AxisYear:   0.10,
	},
	models.SectionSkill: {
		AxisIdentity: 1.0,
	},
}

// Weights returns the axis weights for a section.
func Weights(section models.SectionType) map[string]float64 {
	return sectionWeights[section]
}

// Score compares two same-section field sets and returns the per-axis scores
// plus the weighted total. Text axes where both sides are empty are omitted
// rather than scored 0, so absence of optional data is not disagreement.
// Fields of different sections score 0.
func (s *Scorer) Score(existing, incoming models.SectionFields, now time.Time) (map[string]float64, float64) {
	if existing == nil || incoming == nil || existing.Section() != incoming.Section() {
		return nil, 0.0
	}

	axes := map[string]float64{}

	switch a := existing.(type) {
	case models.WorkExperienceFields:
		b := incoming.(models.WorkExperienceFields)
		axes[AxisOrganization] = s.OrganizationSimilarity(a.Company, b.Company)
		axes[AxisDates] = s.DateRangeOverlap(a.StartDate, a.EndDate, b.StartDate, b.EndDate, now)
		if a.Title != "" || b.Title != "" {
			axes[AxisTitle] = s.TitleSimilarity(a.Title, b.Title)
		}

	case models.EducationFields:
		b := incoming.(models.EducationFields)
		axes[AxisOrganization] = s.OrganizationSimilarity(a.Institution, b.Institution)
		axes[AxisDates] = s.DateRangeOverlap(a.StartDate, a.EndDate, b.StartDate, b.EndDate, now)
		aDegree := joinDegree(a.Degree, a.Field)
		bDegree := joinDegree(b.Degree, b.Field)
		if aDegree != "" || bDegree != "" {
			axes[AxisTitle] = s.TitleSimilarity(aDegree, bDegree)
		}

	case models.ProjectFields:
		b := incoming.(models.ProjectFields)
		axes[AxisName] = s.TitleSimilarity(a.Name, b.Name)
		if len(a.Bullets) > 0 || len(b.Bullets) > 0 {
			axes[AxisDescription] = s.DescriptionSimilarity(a.Bullets, b.Bullets)
		}

	case models.CertificationFields:
		b := incoming.(models.CertificationFields)
		axes[AxisName] = s.TitleSimilarity(a.Name, b.Name)
		if a.Issuer != "" || b.Issuer != "" {
			axes[AxisIssuer] = s.OrganizationSimilarity(a.Issuer, b.Issuer)
		}
		axes[AxisYear] = s.YearMatch(a.Year, b.Year)

	case models.SkillFields:
		b := incoming.(models.SkillFields)
		axes[AxisIdentity] = s.ExactMatch(
			normalizers.NormalizeSkill(a.Name), normalizers.NormalizeSkill(b.Name), true)

	default:
		return nil, 0.0
	}

	return axes, s.WeightedScore(axes, sectionWeights[existing.Section()])
}

func joinDegree(degree, field string) string {
	switch {
	case degree == "":
		return field
	case field == "":
		return degree
	}
	return degree + " " + field
}
