package oracle

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdictFenced(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	raw, err := os.ReadFile("testdata/verdict_fenced.txt")
	require.NoError(err)

	v, err := ParseVerdict(string(raw))
	require.NoError(err)
	assert.True(v.IsFlagged)
	assert.Equal(0.72, v.Probability)
	assert.Equal(RiskMedium, v.RiskLevel)
	assert.Equal("Jane Doe", v.TargetName)
	assert.Equal([]string{"address", "phone"}, v.InfoTypes)
	assert.Contains(v.Rationale, "MEDIUM RISK")
	assert.Contains(v.Rationale, "address and phone number")
	assert.Contains(v.Rationale, "remove immediately")
	assert.Equal(string(raw), v.Raw)
}

func TestParseVerdictClampsAndDefaults(t *testing.T) {
	assert := assert.New(t)

	v, err := ParseVerdict(`{"is_doxxing": true, "probability_of_doxxing": 1.7, "risk_level": "EXTREME", "target_analysis": {"who_was_doxxed": "Unknown"}}`)
	assert.NoError(err)
	assert.Equal(1.0, v.Probability)
	assert.Equal(RiskMinimal, v.RiskLevel)
	assert.Equal("", v.TargetName)

	v, err = ParseVerdict(`{"is_doxxing": false, "probability_of_doxxing": -0.2}`)
	assert.NoError(err)
	assert.False(v.IsFlagged)
	assert.Equal(0.0, v.Probability)
}

func TestParseVerdictRepairsSyntax(t *testing.T) {
	assert := assert.New(t)

	v, err := ParseVerdict(`{"is_doxxing": true, "probability_of_doxxing": 0.9, "risk_level": "HIGH",}`)
	assert.NoError(err)
	assert.True(v.IsFlagged)
	assert.Equal(0.9, v.Probability)
	assert.Equal(RiskHigh, v.RiskLevel)
}

func TestParseVerdictErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := ParseVerdict("I could not analyze this message.")
	assert.Error(err)

	_, err = ParseVerdict(`{"is_doxxing": "maybe"}`)
	assert.Error(err)
}

func TestRiskLevel(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(RiskHigh, ParseRiskLevel("HIGH"))
	assert.Equal(RiskLow, ParseRiskLevel(" low "))
	assert.Equal(RiskMedium, ParseRiskLevel("3"))
	assert.Equal(RiskUnknown, ParseRiskLevel("severe"))

	assert.Equal(4, RiskHigh.Weight())
	assert.Equal(1, RiskUnknown.Weight())
	assert.Equal("Minimal", RiskMinimal.String())
}

func TestHumanInfoTypes(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", HumanInfoTypes(nil))
	assert.Equal("phone number", HumanInfoTypes([]string{"phone"}))
	assert.Equal("email address and ID information", HumanInfoTypes([]string{"email", "government_id"}))
	assert.Equal("address, personal name, and family info", HumanInfoTypes([]string{"address", "real_name", "family_info"}))
}
