package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validRoster = `{
  "students": [
    {"name": "Ama Mensah", "gender": "F", "scores": {"MOCK 1": {"Mathematics": {"section_a": 35, "section_b": 50, "sba": 72}}}},
    {"id": 1, "name": "Kofi Boateng"},
    {"name": "Esi Owusu"}
  ]
}`

func TestParseValidRoster(t *testing.T) {
	roster, err := Parse([]byte(validRoster))
	require.NoError(t, err)
	require.Len(t, roster.Students, 3)

	students := roster.Records(1)
	require.Len(t, students, 3)
	// explicit id 1 is reserved, so generated ids skip it
	assert.Equal(t, 2, students[0].ID)
	assert.Equal(t, 1, students[1].ID)
	assert.Equal(t, 3, students[2].ID)

	math := students[0].Scores("MOCK 1")["Mathematics"]
	assert.Equal(t, 35.0, math.SectionA)
	require.NotNil(t, math.SBA)
	assert.Equal(t, 72.0, *math.SBA)
}

func TestValidateReportsSchemaProblems(t *testing.T) {
	err := Validate([]byte(`{"students": [{"name": "A", "gender": "X"}]}`))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.GreaterOrEqual(t, len(verr.Problems), 2)
}

func TestValidateRejectsMissingSections(t *testing.T) {
	err := Validate([]byte(`{"students": [{"name": "Abena", "scores": {"MOCK 1": {"French": {"section_a": 10}}}}]}`))
	assert.Error(t, err)
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	err := Validate([]byte(`{"students": [`))
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}
