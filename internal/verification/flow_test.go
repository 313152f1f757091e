package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlerts() []Alert {
	return []Alert{
		{ID: "a1", PropertyAddress: "1 Main St", Period: Period{Start: "2020-01-01", End: "2020-01-31"}, ResolutionText: "q1"},
		{ID: "a2", PropertyAddress: "2 Side St", Period: Period{Start: "2021-01-01", End: "2021-01-31"}, ResolutionText: "q2"},
	}
}

type fakeSubmitter struct {
	mu        sync.Mutex
	responses []VerificationResponse
	result    *Response
	err       error
}

func (s *fakeSubmitter) Resubmit(_ context.Context, responses []VerificationResponse) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = responses
	return s.result, s.err
}

func TestFlowCurrentAndAdvance(t *testing.T) {
	f := NewFlow()
	f.SetPanDelay(0)
	f.SetAlerts(testAlerts())

	current, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, "a1", current.ID)
	assert.False(t, f.AllResolved())

	resolved, err := f.Resolve("a1", "owner occupied")
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "owner occupied", resolved.UserResponse)

	current, ok = f.Current()
	require.True(t, ok)
	assert.Equal(t, "a2", current.ID)
}

func TestFlowPansToNextAlert(t *testing.T) {
	f := NewFlow()
	f.SetPanDelay(0)

	panned := make(chan time.Time, 1)
	f.SetPanFunc(func(d time.Time) { panned <- d })
	f.SetAlerts(testAlerts())

	_, err := f.Resolve("a1", "answer")
	require.NoError(t, err)

	select {
	case d := <-panned:
		// Midpoint of a2's period.
		assert.Equal(t, time.Date(2021, 1, 16, 0, 0, 0, 0, time.UTC), d)
	case <-time.After(time.Second):
		t.Fatal("pan callback never fired")
	}
}

func TestFlowAllResolvedOnlyWhenEveryAlertResolved(t *testing.T) {
	f := NewFlow()
	f.SetPanDelay(0)

	// Empty flow has nothing to proceed with.
	assert.False(t, f.AllResolved())

	f.SetAlerts(testAlerts())
	_, err := f.Resolve("a1", "x")
	require.NoError(t, err)
	assert.False(t, f.AllResolved())

	_, err = f.Resolve("a2", "y")
	require.NoError(t, err)
	assert.True(t, f.AllResolved())

	_, err = f.Reopen("a2")
	require.NoError(t, err)
	assert.False(t, f.AllResolved())
}

func TestFlowResolveUnknownAlert(t *testing.T) {
	f := NewFlow()
	f.SetAlerts(testAlerts())
	_, err := f.Resolve("missing", "x")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestFlowProceedRequiresFullResolution(t *testing.T) {
	f := NewFlow()
	f.SetPanDelay(0)

	_, err := f.Proceed(context.Background(), &fakeSubmitter{})
	assert.ErrorIs(t, err, ErrNoAlerts)

	f.SetAlerts(testAlerts())
	_, err = f.Proceed(context.Background(), &fakeSubmitter{})
	assert.ErrorIs(t, err, ErrUnresolvedAlerts)
}

func TestFlowProceedClearsOnCleanResponse(t *testing.T) {
	f := NewFlow()
	f.SetPanDelay(0)
	f.SetAlerts(testAlerts())
	_, err := f.Resolve("a1", "owner occupied")
	require.NoError(t, err)
	_, err = f.Resolve("a2", "rented out")
	require.NoError(t, err)

	clean, err := Normalize([]byte(`{"status":"completed"}`))
	require.NoError(t, err)
	submitter := &fakeSubmitter{result: clean}

	resp, err := f.Proceed(context.Background(), submitter)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.Empty(t, f.Alerts())
	assert.False(t, f.Resubmitting())

	// Payload carried both resolutions with the expected keys.
	require.Len(t, submitter.responses, 2)
	assert.Equal(t, "1 Main St", submitter.responses[0].PropertyAddress)
	assert.Equal(t, "2020-01-01", submitter.responses[0].IssuePeriod.StartDate)
	assert.Equal(t, "q1", submitter.responses[0].ResolutionQuestion)
	assert.Equal(t, "owner occupied", submitter.responses[0].UserResponse)
	assert.NotEmpty(t, submitter.responses[0].ResolvedAt)
}

func TestFlowProceedReplacesAlertsWhenStillUnclear(t *testing.T) {
	f := NewFlow()
	f.SetPanDelay(0)
	f.SetProperties([]string{"1 Main Street, Sydney NSW"})
	f.SetAlerts(testAlerts()[:1])
	_, err := f.Resolve("a1", "x")
	require.NoError(t, err)

	still, err := Normalize([]byte(`{"status":"verification_failed","clarification_questions":[
		{"question":"Follow-up","properties_involved":["1 Main Street"],"period":{"start":"2022-01-01","end":"2022-02-01"}}
	]}`))
	require.NoError(t, err)

	resp, err := f.Proceed(context.Background(), &fakeSubmitter{result: still})
	require.NoError(t, err)
	assert.True(t, resp.NeedsClarification())

	alerts := f.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Follow-up", alerts[0].Message)
	assert.Equal(t, "1 Main Street, Sydney NSW", alerts[0].PropertyAddress)
	assert.False(t, alerts[0].Resolved)

	current, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, alerts[0].ID, current.ID)
}
