package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOrganization(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"case and punctuation", "ACME Corp.", "acme"},
		{"suffix chain", "Initech Holdings Co. Ltd.", "initech holdings"},
		{"extra whitespace", "  Stark   Industries ", "stark industries"},
		{"accented suffix kept mid-name", "Costa Company Store", "costa company store"},
		{"plain", "globex", "globex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeOrganization(tt.input))
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"abbreviation", "Sr. Software Eng", "senior software engineer"},
		{"already normal", "software engineer", "software engineer"},
		{"vp expansion", "VP of Engineering", "vice president of engineering"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTitle(tt.input))
		})
	}
}

func TestNormalizeSkill(t *testing.T) {
	assert.Equal(t, "c++", NormalizeSkill(" C++ "))
	assert.Equal(t, "c#", NormalizeSkill("C#"))
	assert.Equal(t, "node js", NormalizeSkill("Node.js"))
	assert.NotEqual(t, NormalizeSkill("C"), NormalizeSkill("C++"))
}

func TestNormalizeBullet(t *testing.T) {
	assert.Equal(t, "reduced api latency by 30%",
		NormalizeBullet("Reduced  API latency by 30%."))
}

func TestApplyChain(t *testing.T) {
	got := ApplyChain("  ACME Inc.  ", "trim", "norg")
	assert.Equal(t, "acme", got)
}

func TestApplyUnknownNormalizerIsIdentity(t *testing.T) {
	assert.Equal(t, "AsIs", Apply("AsIs", "nope"))
}
