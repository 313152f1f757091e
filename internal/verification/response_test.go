package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnwrapsEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "direct object",
			raw:  `{"status":"verification_failed","analysis":"text"}`,
		},
		{
			name: "single wrapped",
			raw:  `{"success":true,"data":{"status":"verification_failed","analysis":"text"}}`,
		},
		{
			name: "double wrapped",
			raw:  `{"success":true,"data":{"success":false,"data":{"status":"verification_failed","analysis":"text"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Normalize([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, StatusVerificationFailed, resp.Status)
			assert.Equal(t, "text", resp.Analysis)
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	_, err := Normalize(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNeedsClarificationSignals(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"explicit flag", `{"needs_clarification":true}`, true},
		{"status", `{"status":"verification_failed"}`, true},
		{"summary flag", `{"summary":{"requires_clarification":true}}`, true},
		{"failed property", `{"properties":[{"property_address":"1 Main St","verification_status":"failed"}]}`, true},
		{"clean", `{"status":"completed","summary":{"requires_clarification":false}}`, false},
		{"passed properties", `{"properties":[{"address":"1 Main St","verification_status":"passed"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Normalize([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.NeedsClarification())
		})
	}
}

func TestPeriodKeyTolerance(t *testing.T) {
	resp, err := Normalize([]byte(`{"clarification_questions":[
		{"question":"q1","period":{"start":"2020-01-01","end":"2020-06-30"}},
		{"question":"q2","period":{"start_date":"2021-01-01","end_date":"2021-06-30"}}
	]}`))
	require.NoError(t, err)
	require.Len(t, resp.ClarificationQuestions, 2)
	assert.Equal(t, "2020-01-01", resp.ClarificationQuestions[0].Period.Start)
	assert.Equal(t, "2021-06-30", resp.ClarificationQuestions[1].Period.End)
}

func TestRawQuestionsPriority(t *testing.T) {
	// Top-level list wins over the verification block.
	resp, err := Normalize([]byte(`{
		"clarification_questions":[{"question":"top"}],
		"verification":{"clarification_questions":[{"question":"nested"}]}
	}`))
	require.NoError(t, err)
	qs := resp.RawQuestions()
	require.Len(t, qs, 1)
	assert.Equal(t, "top", qs[0].Question)

	// Nested list used when top-level is absent.
	resp, err = Normalize([]byte(`{"verification":{"clarification_questions":[{"question":"nested"}]}}`))
	require.NoError(t, err)
	qs = resp.RawQuestions()
	require.Len(t, qs, 1)
	assert.Equal(t, "nested", qs[0].Question)
}

func TestRawQuestionsFromFailedProperties(t *testing.T) {
	resp, err := Normalize([]byte(`{"properties":[
		{"property_address":"1 Main St","verification_status":"failed","issues":[
			{"clarification_question":"Where did you live?","affected_period":{"start_date":"2019-01-01","end_date":"2019-12-31"},"severity":"critical"}
		]},
		{"address":"2 Side St","verification_status":"passed"}
	]}`))
	require.NoError(t, err)

	qs := resp.RawQuestions()
	require.Len(t, qs, 1)
	assert.Equal(t, "Where did you live?", qs[0].Question)
	assert.Equal(t, "1 Main St", qs[0].PropertyAddress)
	assert.Equal(t, "2019-01-01", qs[0].Period.Start)
	assert.Equal(t, "critical", qs[0].Severity)
}

func TestRawQuestionsFromVerificationIssues(t *testing.T) {
	resp, err := Normalize([]byte(`{"verification":{"issues":[
		{"type":"gap","message":"Gap in occupancy","property_address":"1 Main St","period":{"start":"2018-01-01","end":"2018-03-01"}},
		{"type":"note","message":"ignored"}
	]}}`))
	require.NoError(t, err)

	qs := resp.RawQuestions()
	require.Len(t, qs, 1)
	assert.Equal(t, "Gap in occupancy", qs[0].Question)
}

func TestTransformQuestions(t *testing.T) {
	raw := []RawQuestion{
		{
			Question:        "Who occupied the property?",
			PropertyAddress: "1 Main St",
			Period:          Period{Start: "2020-01-01", End: "2020-06-30"},
			Options:         []string{"Owner", "Tenant"},
		},
		{
			Question:           "Confirm overlap",
			PropertiesInvolved: []string{"1 Main St", "2 Side St"},
			Period:             Period{Start: "2021-01-01", End: "2021-02-01"},
			QuestionID:         "api-supplied-id",
			Severity:           "critical",
		},
	}

	out := TransformQuestions(raw)
	require.Len(t, out, 2)

	assert.Equal(t, []string{"1 Main St"}, out[0].PropertiesInvolved)
	assert.Equal(t, "1 Main St-2020-01-01-2020-06-30", out[0].QuestionID)
	assert.Equal(t, []string{"Owner", "Tenant"}, out[0].PossibleAnswers)
	assert.Equal(t, "clarification", out[0].Type)
	assert.Equal(t, "info", out[0].Severity)

	assert.Equal(t, "api-supplied-id", out[1].QuestionID)
	assert.Equal(t, "critical", out[1].Severity)
	assert.Len(t, out[1].PropertiesInvolved, 2)
}
