// Package fingerprint produces deterministic content hashes of extraction
// batches so repeated deliveries of the same upload can be audited.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/careerark/arc/pkg/models"
)

// Batch fingerprints a candidate batch. The hash covers the candidate
// payloads only: profile and upload identifiers are tracked alongside it, so
// the same CV content re-uploaded under a new upload ID hashes the same.
func Batch(batch *models.CandidateBatch) string {
	payload := struct {
		WorkExperiences []models.WorkExperienceFields `json:"work_experiences"`
		Education       []models.EducationFields      `json:"education"`
		Projects        []models.ProjectFields        `json:"projects"`
		Certifications  []models.CertificationFields  `json:"certifications"`
		Skills          []string                      `json:"skills"`
	}{
		WorkExperiences: batch.WorkExperiences,
		Education:       batch.Education,
		Projects:        batch.Projects,
		Certifications:  batch.Certifications,
		Skills:          batch.Skills,
	}

	raw, _ := json.Marshal(payload)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return Generate(m)
}

// Generate creates a deterministic fingerprint for arbitrary data
// The fingerprint is a SHA256 hash of the canonicalized JSON
func Generate(data map[string]any) string {
	hash := sha256.Sum256([]byte(canonicalize(data)))
	return hex.EncodeToString(hash[:])
}

// GenerateFromJSON creates a fingerprint from raw JSON
func GenerateFromJSON(data json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return "", err
	}
	return Generate(m), nil
}

// canonicalize creates a deterministic string representation of a value by
// sorting map keys and recursively processing nested structures
func canonicalize(data any) string {
	switch v := data.(type) {
	case map[string]any:
		return canonicalizeMap(v)
	case []any:
		return canonicalizeArray(v)
	default:
		// For primitives, use JSON encoding
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func canonicalizeMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := "{"
	for i, k := range keys {
		if i > 0 {
			result += ","
		}
		keyJSON, _ := json.Marshal(k)
		result += string(keyJSON) + ":" + canonicalize(m[k])
	}
	return result + "}"
}

func canonicalizeArray(arr []any) string {
	result := "["
	for i, v := range arr {
		if i > 0 {
			result += ","
		}
		result += canonicalize(v)
	}
	return result + "]"
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
