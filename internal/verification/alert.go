package verification

import (
	"fmt"
	"strings"
	"time"
)

// Alert severities, ordered from most to least urgent.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Shown when the API gives no usable resolution text.
const defaultResolutionText = "Missing information - please review"

// Alert one clarification the user must resolve before resubmission
type Alert struct {
	ID              string   `json:"id"`
	PropertyAddress string   `json:"propertyAddress"`
	Period          Period   `json:"period"`
	Severity        string   `json:"severity"`
	Message         string   `json:"message"`
	ResolutionText  string   `json:"resolutionText"`
	Options         []string `json:"options,omitempty"`
	QuestionID      string   `json:"questionId,omitempty"`

	Resolved     bool       `json:"resolved"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
	UserResponse string     `json:"userResponse,omitempty"`
}

// PeriodMidpoint midpoint of the alert's period, for panning the timeline to
// the affected stretch. Falls back to the start date for open periods.
func (a Alert) PeriodMidpoint() (time.Time, bool) {
	start, errS := parseAlertDate(a.Period.Start)
	end, errE := parseAlertDate(a.Period.End)
	switch {
	case errS == nil && errE == nil:
		return start.Add(end.Sub(start) / 2), true
	case errS == nil:
		return start, true
	case errE == nil:
		return end, true
	}
	return time.Time{}, false
}

func parseAlertDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ExtractAlerts builds the ordered alert list from a normalized response.
//
// Sources in priority order: explicit clarification questions (one alert per
// involved property; incomplete entries are skipped, and when any question
// produces an alert the remaining sources are ignored), then failed-property
// issues, then global issues naming a property. knownAddresses are the
// timeline's property addresses, used to canonicalize the address the API
// echoes back.
func ExtractAlerts(r *Response, knownAddresses []string) []Alert {
	if r == nil {
		return nil
	}

	alerts := fromQuestions(r, knownAddresses)
	if len(alerts) > 0 {
		return alerts
	}

	alerts = fromFailedProperties(r, knownAddresses)

	if r.Verification != nil {
		for gi, issue := range r.Verification.Issues {
			if issue.PropertyAddress == "" {
				continue
			}
			alerts = append(alerts, Alert{
				ID:              fmt.Sprintf("alert-global-%d", gi),
				PropertyAddress: resolveAddress(issue.PropertyAddress, knownAddresses),
				Period:          issue.Period,
				Severity:        firstNonEmpty(issue.Severity, SeverityWarning),
				Message:         firstNonEmpty(issue.Message, issue.Question),
				ResolutionText:  resolutionText(issue),
				Options:         firstNonEmptySlice(issue.Options, issue.PossibleAnswers),
			})
		}
	}
	return alerts
}

func fromQuestions(r *Response, knownAddresses []string) []Alert {
	questions := TransformQuestions(collectExplicitQuestions(r))

	var alerts []Alert
	for qi, q := range questions {
		if q.Question == "" || len(q.PropertiesInvolved) == 0 || q.Period.IsZero() {
			continue
		}
		for pi, address := range q.PropertiesInvolved {
			if address == "" {
				continue
			}
			alerts = append(alerts, Alert{
				ID:              fmt.Sprintf("alert-cq-%d-%d", qi, pi),
				PropertyAddress: resolveAddress(address, knownAddresses),
				Period:          q.Period,
				Severity:        firstNonEmpty(q.Severity, SeverityWarning),
				Message:         q.Question,
				ResolutionText:  q.Question,
				Options:         q.PossibleAnswers,
				QuestionID:      q.QuestionID,
			})
		}
	}
	return alerts
}

// collectExplicitQuestions returns only question lists the API stated
// outright; issue mining is handled by the later stages of ExtractAlerts.
func collectExplicitQuestions(r *Response) []RawQuestion {
	switch {
	case len(r.ClarificationQuestions) > 0:
		return r.ClarificationQuestions
	case r.Verification != nil && len(r.Verification.ClarificationQuestions) > 0:
		return r.Verification.ClarificationQuestions
	case len(r.Gaps) > 0:
		return r.Gaps
	case len(r.TimelineGaps) > 0:
		return r.TimelineGaps
	}
	return nil
}

func fromFailedProperties(r *Response, knownAddresses []string) []Alert {
	var alerts []Alert
	for pi, prop := range r.Properties {
		if !prop.Failed() {
			continue
		}
		for ii, issue := range prop.Issues {
			alerts = append(alerts, Alert{
				ID:              fmt.Sprintf("alert-prop-%d-%d", pi, ii),
				PropertyAddress: resolveAddress(prop.ResolvedAddress(), knownAddresses),
				Period:          issue.Period,
				Severity:        firstNonEmpty(issue.Severity, SeverityWarning),
				Message:         firstNonEmpty(issue.Message, issue.Question, issue.ClarificationQuestion),
				ResolutionText:  resolutionText(issue),
				Options:         firstNonEmptySlice(issue.Options, issue.PossibleAnswers),
			})
		}
	}
	return alerts
}

func resolutionText(issue Issue) string {
	return firstNonEmpty(
		issue.SuggestedResolution,
		issue.ClarificationQuestion,
		issue.Question,
		issue.Message,
		defaultResolutionText,
	)
}

// resolveAddress matches an API-echoed address against the timeline's
// properties; either side may carry the longer form.
func resolveAddress(address string, known []string) string {
	needle := strings.ToLower(strings.TrimSpace(address))
	for _, candidate := range known {
		c := strings.ToLower(strings.TrimSpace(candidate))
		if c == needle || strings.Contains(c, needle) || strings.Contains(needle, c) {
			return candidate
		}
	}
	return address
}
