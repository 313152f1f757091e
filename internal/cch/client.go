package cch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"cgt-timeline-backend/internal/verification"
)

// CCH responses regularly take minutes; the verify call gets a long leash
// and the health probe a short one.
const (
	defaultVerifyTimeout = 3 * time.Minute
	healthTimeout        = 10 * time.Second
)

var (
	ErrNoScenario = errors.New("scenario/verification prompt is required")
	ErrNoAnswer   = errors.New("our answer is required for comparison")
)

var (
	escapedBreakRe = regexp.MustCompile(`\\n|\\r`)
	newlineRe      = regexp.MustCompile(`\r\n|\r|\n|\t`)
	mdHeaderRe     = regexp.MustCompile(`#{1,6}\s*`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)
)

// FormatVerificationPrompt flattens a verification prompt to a single line
// so it pastes cleanly into the CCH chat: escape sequences, newlines and
// tabs become spaces, markdown headers lose their hashes, and runs of
// whitespace collapse.
func FormatVerificationPrompt(prompt string) string {
	if prompt == "" {
		return ""
	}
	s := escapedBreakRe.ReplaceAllString(prompt, " ")
	s = newlineRe.ReplaceAllString(s, " ")
	s = mdHeaderRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ExtractOurAnswer builds the comparison text from a normalized analysis
// response: one segment per property with its calculation summary.
func ExtractOurAnswer(resp *verification.Response) string {
	if resp == nil {
		return ""
	}

	var props []struct {
		PropertyAddress    string `json:"property_address"`
		Result             string `json:"result"`
		CalculationSummary *struct {
			SalePrice                json.Number `json:"sale_price"`
			TotalCostBase            json.Number `json:"total_cost_base"`
			GrossCapitalGain         json.Number `json:"gross_capital_gain"`
			MainResidencePct         json.Number `json:"main_residence_exemption_percentage"`
			TaxableCapitalGain       json.Number `json:"taxable_capital_gain"`
			CGTDiscountApplicable    bool        `json:"cgt_discount_applicable"`
			CGTDiscountPercentage    json.Number `json:"cgt_discount_percentage"`
			NetCapitalGain           json.Number `json:"net_capital_gain"`
		} `json:"calculation_summary"`
	}
	var wrapper struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(resp.Raw, &wrapper); err != nil || len(wrapper.Properties) == 0 {
		return ""
	}
	if err := json.Unmarshal(wrapper.Properties, &props); err != nil {
		return ""
	}

	var parts []string
	for _, prop := range props {
		address := prop.PropertyAddress
		if address == "" {
			address = "Unknown"
		}
		parts = append(parts, "Property: "+address)

		if s := prop.CalculationSummary; s != nil {
			parts = append(parts,
				"Sale Price: "+s.SalePrice.String(),
				"Total Cost Base: "+s.TotalCostBase.String(),
				"Gross Capital Gain: "+s.GrossCapitalGain.String(),
				"Main Residence Exemption: "+s.MainResidencePct.String()+"%",
				"Taxable Capital Gain: "+s.TaxableCapitalGain.String(),
			)
			if s.CGTDiscountApplicable {
				parts = append(parts, "CGT Discount: "+s.CGTDiscountPercentage.String()+"%")
			}
			parts = append(parts, "Net Capital Gain: "+s.NetCapitalGain.String())
		}
		if prop.Result != "" {
			parts = append(parts, "Result: "+prop.Result)
		}
	}
	return strings.Join(parts, " | ")
}

// VerifyRequest input for a verify-and-compare call
type VerifyRequest struct {
	OurAnswer string   `json:"our_answer"`
	Scenario  string   `json:"scenario"`
	Timeline  []string `json:"timeline,omitempty"`
}

// Comparison CCH's judgement of how our answer lines up
type Comparison struct {
	Alignment       string   `json:"alignment"` // high, medium, low
	MatchPercentage float64  `json:"match_percentage"`
	Agreements      []string `json:"agreements,omitempty"`
	Differences     []string `json:"differences,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}

// VerifyResult verify-and-compare outcome
type VerifyResult struct {
	Success           bool            `json:"success"`
	CCHAnswer         string          `json:"cch_answer,omitempty"`
	Comparison        *Comparison     `json:"comparison,omitempty"`
	FormattedScenario string          `json:"formatted_scenario"`
	VerifiedAt        time.Time       `json:"verified_at"`
	Raw               json.RawMessage `json:"-"`
}

// Client proxies the CCH verification service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a CCH endpoint is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// VerifyAndCompare sends our answer and the flattened scenario to CCH.
func (c *Client) VerifyAndCompare(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	scenario := FormatVerificationPrompt(req.Scenario)
	if scenario == "" {
		return nil, ErrNoScenario
	}
	if req.OurAnswer == "" {
		return nil, ErrNoAnswer
	}

	payload, err := json.Marshal(map[string]any{
		"our_answer":          req.OurAnswer,
		"verification_prompt": scenario,
		"timeline":            req.Timeline,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📤 [CCH] Verify-and-compare request (scenario: %d chars, answer: %d chars)", len(scenario), len(req.OurAnswer))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/cch/verify-and-compare", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("CCH request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("CCH API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	result := VerifyResult{
		FormattedScenario: scenario,
		VerifiedAt:        time.Now().UTC(),
		Raw:               raw,
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode CCH response: %w", err)
	}
	log.Printf("📥 [CCH] Response received (comparison: %v)", result.Comparison != nil)
	return &result, nil
}

// Health probes the CCH service.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("CCH service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CCH service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
