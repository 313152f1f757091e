package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cgt-timeline-backend/internal/timeline"
	"cgt-timeline-backend/internal/verification"
)

func demoRequest() Request {
	return Request{
		Properties: []timeline.Property{{ID: "p1", Address: "1 Main St"}},
		Events:     []timeline.Event{{ID: "e1", PropertyID: "p1", Type: "purchase", Date: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)}},
	}
}

func TestCalculateMarkdownMode(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"status":"completed","analysis":"# Report"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ModeMarkdown, "", time.Second)
	result, err := c.Calculate(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.Equal(t, "/calculate-cgt/", gotPath)
	assert.Equal(t, DefaultProvider, gotBody["llm_provider"])
	assert.Equal(t, "completed", result.Response.Status)
	assert.False(t, result.Demo)
}

func TestCalculateJSONFallsBackToMarkdown(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/calculate-cgt-json/" {
			// Parses, but matches no known shape.
			w.Write([]byte(`{"unexpected":"shape"}`))
			return
		}
		w.Write([]byte(`{"status":"completed","analysis":"# Report"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ModeJSON, "gemini", time.Second)
	result, err := c.Calculate(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"/calculate-cgt-json/", "/calculate-cgt/"}, paths)
	assert.Equal(t, ModeMarkdown, result.Mode)
}

func TestCalculateJSONNoFallbackWhenValid(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"status":"verification_failed","clarification_questions":[{"question":"q","properties_involved":["1 Main St"],"period":{"start":"2020-01-01","end":"2020-02-01"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ModeJSON, "", time.Second)
	result, err := c.Calculate(context.Background(), demoRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, result.Response.NeedsClarification())
}

func TestCalculateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, ModeMarkdown, "", time.Second)
	_, err := c.Calculate(context.Background(), demoRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestCalculateDemoModeWhenUnconfigured(t *testing.T) {
	for _, base := range []string{"", placeholderBaseURL} {
		c := NewClient(base, ModeMarkdown, "", time.Second)
		c.SetDemoDelay(0)
		assert.False(t, c.Configured())

		result, err := c.Calculate(context.Background(), demoRequest())
		require.NoError(t, err)
		assert.True(t, result.Demo)
		assert.False(t, result.Response.NeedsClarification())
		assert.NotEmpty(t, result.Response.Analysis)
	}
}

func TestCalculateCarriesVerificationResponses(t *testing.T) {
	var gotBody struct {
		VerificationResponses []verification.VerificationResponse `json:"verification_responses"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"status":"completed"}`))
	}))
	defer srv.Close()

	req := demoRequest()
	req.VerificationResponses = []verification.VerificationResponse{{
		PropertyAddress:    "1 Main St",
		IssuePeriod:        verification.IssuePeriod{StartDate: "2020-01-01", EndDate: "2020-02-01"},
		ResolutionQuestion: "q",
		UserResponse:       "owner occupied",
	}}

	c := NewClient(srv.URL, ModeMarkdown, "", time.Second)
	_, err := c.Calculate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, gotBody.VerificationResponses, 1)
	assert.Equal(t, "owner occupied", gotBody.VerificationResponses[0].UserResponse)
}

func TestValidFormat(t *testing.T) {
	assert.False(t, ValidFormat(nil))

	resp, err := verification.Normalize([]byte(`{"unexpected":"shape"}`))
	require.NoError(t, err)
	assert.False(t, ValidFormat(resp))

	resp, err = verification.Normalize([]byte(`{"analysis":"# md"}`))
	require.NoError(t, err)
	assert.True(t, ValidFormat(resp))
}
