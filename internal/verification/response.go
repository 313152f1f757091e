package verification

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Historical analysis API responses arrive in several shapes: double-wrapped
// {success,data:{data:...}}, single-wrapped {success,data}, or the object
// itself; clarification flags and questions have moved around between
// releases. Everything is normalized here, once, at the API boundary.

var ErrEmptyResponse = errors.New("empty analysis response")

// StatusVerificationFailed status value signalling unresolved clarifications.
const StatusVerificationFailed = "verification_failed"

// Period date range of an issue or question; tolerates both the start/end
// and start_date/end_date key pairs
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days,omitempty"`
}

// UnmarshalJSON accepts either key pair.
func (p *Period) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start     string `json:"start"`
		StartDate string `json:"start_date"`
		End       string `json:"end"`
		EndDate   string `json:"end_date"`
		Days      int    `json:"days"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Start = firstNonEmpty(raw.StartDate, raw.Start)
	p.End = firstNonEmpty(raw.EndDate, raw.End)
	p.Days = raw.Days
	return nil
}

// IsZero reports whether no dates are set.
func (p Period) IsZero() bool {
	return p.Start == "" && p.End == ""
}

// RawQuestion clarification question as any endpoint version emits it
type RawQuestion struct {
	Question           string   `json:"question"`
	Type               string   `json:"type"`
	PropertyAddress    string   `json:"property_address"`
	PropertiesInvolved []string `json:"properties_involved"`
	Period             Period   `json:"period"`
	Options            []string `json:"options"`
	PossibleAnswers    []string `json:"possible_answers"`
	Severity           string   `json:"severity"`
	QuestionID         string   `json:"question_id"`
}

// Question canonical clarification question
type Question struct {
	Question           string   `json:"question"`
	Type               string   `json:"type"`
	PropertiesInvolved []string `json:"properties_involved"`
	Period             Period   `json:"period"`
	PossibleAnswers    []string `json:"possible_answers"`
	Severity           string   `json:"severity"`
	QuestionID         string   `json:"question_id"`
}

// Issue verification issue attached to a property or the whole timeline
type Issue struct {
	Type                  string   `json:"type"`
	Severity              string   `json:"severity"`
	Message               string   `json:"message"`
	Question              string   `json:"question"`
	ClarificationQuestion string   `json:"clarification_question"`
	SuggestedResolution   string   `json:"suggested_resolution"`
	PropertyAddress       string   `json:"property_address"`
	Period                Period   `json:"period"`
	Options               []string `json:"options"`
	PossibleAnswers       []string `json:"possible_answers"`
	RequiresClarification bool     `json:"requires_clarification"`
}

// UnmarshalJSON tolerates affected_period as an alias for period.
func (i *Issue) UnmarshalJSON(data []byte) error {
	type issueAlias Issue
	var raw struct {
		issueAlias
		AffectedPeriod *Period `json:"affected_period"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = Issue(raw.issueAlias)
	if i.Period.IsZero() && raw.AffectedPeriod != nil {
		i.Period = *raw.AffectedPeriod
	}
	return nil
}

// PropertyResult per-property verification outcome
type PropertyResult struct {
	PropertyAddress    string  `json:"property_address"`
	Address            string  `json:"address"`
	VerificationStatus string  `json:"verification_status"`
	Issues             []Issue `json:"issues"`
}

// ResolvedAddress returns whichever address field is populated.
func (p PropertyResult) ResolvedAddress() string {
	return firstNonEmpty(p.PropertyAddress, p.Address)
}

// Failed reports whether verification failed for this property.
func (p PropertyResult) Failed() bool {
	return p.VerificationStatus == "failed"
}

// Summary analysis summary block
type Summary struct {
	TotalProperties       int  `json:"total_properties"`
	PropertiesPassed      int  `json:"properties_passed"`
	PropertiesFailed      int  `json:"properties_failed"`
	RequiresClarification bool `json:"requires_clarification"`
}

// Verification verification block carrying questions and issues
type Verification struct {
	ClarificationQuestions []RawQuestion `json:"clarification_questions"`
	Issues                 []Issue       `json:"issues"`
}

// Response normalized analysis response
type Response struct {
	Status                 string           `json:"status,omitempty"`
	Success                *bool            `json:"success,omitempty"`
	NeedsClarificationFlag bool             `json:"needs_clarification,omitempty"`
	Summary                *Summary         `json:"summary,omitempty"`
	Verification           *Verification    `json:"verification,omitempty"`
	Properties             []PropertyResult `json:"properties,omitempty"`
	ClarificationQuestions []RawQuestion    `json:"clarification_questions,omitempty"`
	Gaps                   []RawQuestion    `json:"gaps,omitempty"`
	TimelineGaps           []RawQuestion    `json:"timeline_gaps,omitempty"`
	Analysis               string           `json:"analysis,omitempty"`
	VerificationPrompt     string           `json:"verification_prompt,omitempty"`
	TotalNetCapitalGain    json.Number      `json:"total_net_capital_gain,omitempty"`
	Error                  string           `json:"error,omitempty"`

	// Raw is the unwrapped payload as received.
	Raw json.RawMessage `json:"-"`
}

// Normalize unwraps and decodes an analysis API payload. Wrapping is peeled
// at most twice: {success,data:{data:...}} and {success,data} both resolve
// to the inner object.
func Normalize(raw []byte) (*Response, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyResponse
	}

	inner := unwrap(unwrap(raw))
	var resp Response
	if err := json.Unmarshal(inner, &resp); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	resp.Raw = inner
	return &resp, nil
}

// unwrap peels one {success, data} envelope if present.
func unwrap(raw []byte) []byte {
	var envelope struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return raw
	}
	// Only treat it as an envelope when it looks like one.
	if envelope.Success == nil {
		return raw
	}
	if envelope.Data[0] != '{' {
		return raw
	}
	return envelope.Data
}

// NeedsClarification reports whether the analysis is blocked on the user.
// Any of the historical signals counts.
func (r *Response) NeedsClarification() bool {
	if r.NeedsClarificationFlag {
		return true
	}
	if r.Status == StatusVerificationFailed {
		return true
	}
	if r.Summary != nil && r.Summary.RequiresClarification {
		return true
	}
	return r.HasFailedProperties()
}

// HasFailedProperties reports whether any property failed verification.
func (r *Response) HasFailedProperties() bool {
	for _, p := range r.Properties {
		if p.Failed() {
			return true
		}
	}
	return false
}

// RawQuestions collects clarification questions from every location the API
// has historically used, in priority order. Failed-property issues and
// gap-type verification issues are only consulted when no explicit question
// list exists.
func (r *Response) RawQuestions() []RawQuestion {
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

	var questions []RawQuestion
	for _, prop := range r.Properties {
		if !prop.Failed() {
			continue
		}
		for _, issue := range prop.Issues {
			questions = append(questions, RawQuestion{
				Question:        firstNonEmpty(issue.ClarificationQuestion, issue.Question, issue.Message, "Please clarify this period"),
				PropertyAddress: prop.ResolvedAddress(),
				Period:          issue.Period,
				Options:         firstNonEmptySlice(issue.Options, issue.PossibleAnswers),
				Severity:        firstNonEmpty(issue.Severity, "warning"),
			})
		}
	}
	if len(questions) > 0 {
		return questions
	}

	if r.Verification != nil {
		for _, issue := range r.Verification.Issues {
			if issue.Type != "gap" && !issue.RequiresClarification {
				continue
			}
			questions = append(questions, RawQuestion{
				Question:        firstNonEmpty(issue.ClarificationQuestion, issue.Question, issue.Message),
				PropertyAddress: issue.PropertyAddress,
				Period:          issue.Period,
				Options:         firstNonEmptySlice(issue.Options, issue.PossibleAnswers),
				Severity:        firstNonEmpty(issue.Severity, "warning"),
			})
		}
	}
	return questions
}

// TransformQuestions canonicalizes raw questions. Missing question ids are
// derived from the property and period so resubmissions stay stable.
func TransformQuestions(raw []RawQuestion) []Question {
	out := make([]Question, 0, len(raw))
	for _, q := range raw {
		address := q.PropertyAddress
		if address == "" && len(q.PropertiesInvolved) > 0 {
			address = q.PropertiesInvolved[0]
		}

		involved := q.PropertiesInvolved
		if len(involved) == 0 && q.PropertyAddress != "" {
			involved = []string{q.PropertyAddress}
		}

		id := q.QuestionID
		if id == "" {
			id = fmt.Sprintf("%s-%s-%s", address, q.Period.Start, q.Period.End)
		}

		out = append(out, Question{
			Question:           q.Question,
			Type:               firstNonEmpty(q.Type, "clarification"),
			PropertiesInvolved: involved,
			Period:             q.Period,
			PossibleAnswers:    firstNonEmptySlice(q.PossibleAnswers, q.Options),
			Severity:           firstNonEmpty(q.Severity, "info"),
			QuestionID:         id,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptySlice(slices ...[]string) []string {
	for _, s := range slices {
		if len(s) > 0 {
			return s
		}
	}
	return nil
}
