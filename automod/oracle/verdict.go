package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Severity estimate returned by the classifier, on a 1..4 scale.
type RiskLevel int

const (
	RiskUnknown RiskLevel = iota
	RiskMinimal
	RiskLow
	RiskMedium
	RiskHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskMinimal:
		return "Minimal"
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Numeric weight used in severity combination. Unrecognized levels count as Minimal.
func (r RiskLevel) Weight() int {
	if r < RiskMinimal || r > RiskHigh {
		return int(RiskMinimal)
	}
	return int(r)
}

// Parses a risk level name (case-insensitive) or a digit 1..4.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "1":
		return RiskMinimal
	case "low", "2":
		return RiskLow
	case "medium", "3":
		return RiskMedium
	case "high", "4":
		return RiskHigh
	default:
		return RiskUnknown
	}
}

// Classification of a single message.
type Verdict struct {
	IsFlagged   bool
	Probability float64
	RiskLevel   RiskLevel
	// Name of the person whose information was exposed; empty when unknown.
	TargetName string
	InfoTypes  []string
	// Human-readable explanation, stored for the details command.
	Rationale string
	// Raw response text, as received.
	Raw string
}

// A verdict that never triggers any action. Used when the classifier fails.
func NotFlagged(reason string) *Verdict {
	return &Verdict{
		IsFlagged: false,
		RiskLevel: RiskMinimal,
		Rationale: reason,
	}
}

// wire format returned by the classifier
type wireVerdict struct {
	IsDoxxing   bool    `json:"is_doxxing"`
	Probability float64 `json:"probability_of_doxxing"`
	RiskLevel   string  `json:"risk_level"`
	Target      struct {
		WhoWasDoxxed string `json:"who_was_doxxed"`
		Relationship string `json:"relationship_to_author"`
	} `json:"target_analysis"`
	Disclosed struct {
		InfoTypes        []string `json:"info_types_found"`
		SensitiveDetails []string `json:"sensitive_details"`
	} `json:"information_disclosed"`
	Summary struct {
		PrimaryConcern    string `json:"primary_concern"`
		Reasoning         string `json:"reasoning"`
		RecommendedAction string `json:"recommended_action"`
	} `json:"moderator_summary"`
}

// Extracts the JSON object from a classifier response, tolerating surrounding prose and markdown code fences.
func extractObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in classifier response")
	}
	return raw[start : end+1], nil
}

// Parses a classifier response into a Verdict. Probability is clamped into [0,1].
func ParseVerdict(raw string) (*Verdict, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return nil, err
	}
	var w wireVerdict
	if err := json.Unmarshal([]byte(obj), &w); err != nil {
		// model output is sometimes almost-JSON (trailing commas, unquoted keys); type mismatches are not repaired
		var synErr *json.SyntaxError
		if !errors.As(err, &synErr) {
			return nil, fmt.Errorf("parsing classifier JSON: %w", err)
		}
		fixed, repairErr := jsonrepair.JSONRepair(obj)
		if repairErr != nil {
			return nil, fmt.Errorf("parsing classifier JSON: %w", err)
		}
		w = wireVerdict{}
		if err := json.Unmarshal([]byte(fixed), &w); err != nil {
			return nil, fmt.Errorf("parsing repaired classifier JSON: %w", err)
		}
	}

	v := &Verdict{
		IsFlagged:   w.IsDoxxing,
		Probability: clamp(w.Probability),
		RiskLevel:   ParseRiskLevel(w.RiskLevel),
		InfoTypes:   w.Disclosed.InfoTypes,
		Raw:         raw,
	}
	if v.RiskLevel == RiskUnknown {
		v.RiskLevel = RiskMinimal
	}
	target := strings.TrimSpace(w.Target.WhoWasDoxxed)
	if !strings.EqualFold(target, "unknown") && !strings.EqualFold(target, "unknown person") {
		v.TargetName = target
	}
	v.Rationale = renderRationale(&w, v)
	return v, nil
}

func clamp(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func renderRationale(w *wireVerdict, v *Verdict) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DOXXING DETECTED - %s RISK\n\n", strings.ToUpper(v.RiskLevel.String()))
	target := v.TargetName
	if target == "" {
		target = "Unknown person"
	}
	relationship := w.Target.Relationship
	if relationship == "" {
		relationship = "unknown"
	}
	fmt.Fprintf(&sb, "Target: %s (%s to author)\n", target, relationship)
	fmt.Fprintf(&sb, "Confidence: %.0f%%\n", v.Probability*100)
	concern := w.Summary.PrimaryConcern
	if concern == "" {
		concern = "Privacy violation detected"
	}
	fmt.Fprintf(&sb, "Primary Concern: %s\n\n", concern)

	types := HumanInfoTypes(v.InfoTypes)
	if types == "" {
		types = "none identified"
	}
	details := "See message content"
	if len(w.Disclosed.SensitiveDetails) > 0 {
		details = strings.Join(w.Disclosed.SensitiveDetails, ", ")
	}
	fmt.Fprintf(&sb, "Information Exposed:\n- Types: %s\n- Sensitive Details: %s\n\n", types, details)

	reasoning := w.Summary.Reasoning
	if reasoning == "" {
		reasoning = "No detailed reasoning provided"
	}
	fmt.Fprintf(&sb, "Analysis: %s\n", reasoning)
	if w.Summary.RecommendedAction != "" {
		fmt.Fprintf(&sb, "Recommended Action: %s\n", strings.ReplaceAll(w.Summary.RecommendedAction, "_", " "))
	}
	return strings.TrimSpace(sb.String())
}
