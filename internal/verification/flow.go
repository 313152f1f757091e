package verification

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Timing of the resolve-then-advance choreography: the timeline pans to the
// next alert shortly after a resolution so the modal handoff reads as one
// motion.
const defaultPanDelay = 800 * time.Millisecond

var (
	ErrAlertNotFound    = errors.New("verification alert not found")
	ErrUnresolvedAlerts = errors.New("unresolved verification alerts remain")
	ErrNoAlerts         = errors.New("no verification alerts to resubmit")
	ErrResubmitInFlight = errors.New("resubmission already in progress")
)

// IssuePeriod period keys as the resubmission payload expects them
type IssuePeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// VerificationResponse one resolved clarification sent back with the
// resubmitted timeline
type VerificationResponse struct {
	PropertyAddress    string      `json:"property_address"`
	IssuePeriod        IssuePeriod `json:"issue_period"`
	ResolutionQuestion string      `json:"resolution_question"`
	UserResponse       string      `json:"user_response"`
	ResolvedAt         string      `json:"resolved_at"`
	QuestionID         string      `json:"question_id,omitempty"`
}

// Submitter resubmits the timeline with the collected responses.
type Submitter interface {
	Resubmit(ctx context.Context, responses []VerificationResponse) (*Response, error)
}

// PanFunc pans the timeline view to a date.
type PanFunc func(time.Time)

// Flow sequences verification alerts: one current alert at a time, explicit
// resolution, and an explicit proceed step before resubmission. Resolving
// the last alert never resubmits on its own.
type Flow struct {
	mu           sync.Mutex
	alerts       []Alert
	current      int
	addresses    []string
	resubmitting bool

	pan      PanFunc
	panDelay time.Duration
	now      func() time.Time
}

// NewFlow creates an empty Flow.
func NewFlow() *Flow {
	return &Flow{
		current:  -1,
		panDelay: defaultPanDelay,
		now:      time.Now,
	}
}

// SetPanFunc installs the pan callback invoked when the flow advances.
func (f *Flow) SetPanFunc(fn PanFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pan = fn
}

// SetPanDelay overrides the advance delay.
func (f *Flow) SetPanDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panDelay = d
}

// SetProperties records the timeline's property addresses for alert
// re-extraction after a resubmission.
func (f *Flow) SetProperties(addresses []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addresses = append([]string(nil), addresses...)
}

// SetAlerts replaces the alert list and points at the first unresolved one.
func (f *Flow) SetAlerts(alerts []Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append([]Alert(nil), alerts...)
	f.current = f.firstUnresolvedLocked()
}

// Alerts returns a copy of the alert list.
func (f *Flow) Alerts() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Alert(nil), f.alerts...)
}

// Current returns the alert awaiting resolution.
func (f *Flow) Current() (Alert, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current < 0 || f.current >= len(f.alerts) {
		return Alert{}, false
	}
	return f.alerts[f.current], true
}

// Resolve records the user's answer for an alert and advances to the next
// unresolved one, panning the timeline to its period after the delay.
func (f *Flow) Resolve(id, userResponse string) (Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.indexLocked(id)
	if idx < 0 {
		return Alert{}, ErrAlertNotFound
	}

	now := f.now()
	f.alerts[idx].Resolved = true
	f.alerts[idx].ResolvedAt = &now
	f.alerts[idx].UserResponse = userResponse

	f.current = f.firstUnresolvedLocked()
	if f.current >= 0 && f.pan != nil {
		next := f.alerts[f.current]
		if mid, ok := next.PeriodMidpoint(); ok {
			pan := f.pan
			time.AfterFunc(f.panDelay, func() { pan(mid) })
		}
	}
	return f.alerts[idx], nil
}

// Reopen clears an alert's resolution.
func (f *Flow) Reopen(id string) (Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.indexLocked(id)
	if idx < 0 {
		return Alert{}, ErrAlertNotFound
	}
	f.alerts[idx].Resolved = false
	f.alerts[idx].ResolvedAt = nil
	f.alerts[idx].UserResponse = ""
	f.current = f.firstUnresolvedLocked()
	return f.alerts[idx], nil
}

// AllResolved reports whether every alert has been resolved. An empty flow
// has nothing to proceed with and reports false.
func (f *Flow) AllResolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allResolvedLocked()
}

func (f *Flow) allResolvedLocked() bool {
	if len(f.alerts) == 0 {
		return false
	}
	for _, a := range f.alerts {
		if !a.Resolved {
			return false
		}
	}
	return true
}

// Responses builds the verification_responses payload from resolved alerts.
func (f *Flow) Responses() []VerificationResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responsesLocked()
}

func (f *Flow) responsesLocked() []VerificationResponse {
	out := make([]VerificationResponse, 0, len(f.alerts))
	for _, a := range f.alerts {
		if !a.Resolved {
			continue
		}
		resolvedAt := ""
		if a.ResolvedAt != nil {
			resolvedAt = a.ResolvedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, VerificationResponse{
			PropertyAddress:    a.PropertyAddress,
			IssuePeriod:        IssuePeriod{StartDate: a.Period.Start, EndDate: a.Period.End},
			ResolutionQuestion: a.ResolutionText,
			UserResponse:       a.UserResponse,
			ResolvedAt:         resolvedAt,
			QuestionID:         a.QuestionID,
		})
	}
	return out
}

// Clear drops all alerts.
func (f *Flow) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = nil
	f.current = -1
}

// Proceed resubmits the timeline with the collected responses. It requires
// every alert resolved and an explicit call; this is the user's confirmation
// step. A response that still needs clarification replaces the alert list; a
// clean response clears the flow.
func (f *Flow) Proceed(ctx context.Context, submitter Submitter) (*Response, error) {
	f.mu.Lock()
	if len(f.alerts) == 0 {
		f.mu.Unlock()
		return nil, ErrNoAlerts
	}
	if !f.allResolvedLocked() {
		f.mu.Unlock()
		return nil, ErrUnresolvedAlerts
	}
	if f.resubmitting {
		f.mu.Unlock()
		return nil, ErrResubmitInFlight
	}
	f.resubmitting = true
	responses := f.responsesLocked()
	addresses := append([]string(nil), f.addresses...)
	f.mu.Unlock()

	resp, err := submitter.Resubmit(ctx, responses)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.resubmitting = false
	if err != nil {
		return nil, err
	}

	if resp != nil && resp.NeedsClarification() {
		f.alerts = ExtractAlerts(resp, addresses)
		f.current = f.firstUnresolvedLocked()
	} else {
		f.alerts = nil
		f.current = -1
	}
	return resp, nil
}

// Resubmitting reports whether a resubmission is in flight.
func (f *Flow) Resubmitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resubmitting
}

func (f *Flow) indexLocked(id string) int {
	for i, a := range f.alerts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (f *Flow) firstUnresolvedLocked() int {
	for i, a := range f.alerts {
		if !a.Resolved {
			return i
		}
	}
	return -1
}
