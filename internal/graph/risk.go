package graph

import "fmt"

// RiskLevel bands the blast radius of a change.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskOrder = []RiskLevel{RiskNone, RiskLow, RiskMedium, RiskHigh}

// RiskPolicy maps a dependent count and depth to a RiskLevel.
//
// Zero dependents is none. Fewer than Medium is low, fewer than High is
// medium, anything else is high. When DepthEscalation is positive and the
// deepest dependent is at least that far away, the band moves up one step.
type RiskPolicy struct {
	Medium          int `json:"medium"`
	High            int `json:"high"`
	DepthEscalation int `json:"depth_escalation"`
}

// DefaultRiskPolicy matches the historical bands: more than 3 dependents is
// medium, more than 10 is high.
var DefaultRiskPolicy = RiskPolicy{Medium: 4, High: 11, DepthEscalation: 4}

// Validate rejects policies whose bands overlap or are empty.
func (p RiskPolicy) Validate() error {
	if p.Medium < 1 {
		return fmt.Errorf("impact.medium must be at least 1, got %d", p.Medium)
	}
	if p.High <= p.Medium {
		return fmt.Errorf("impact.high (%d) must be greater than impact.medium (%d)", p.High, p.Medium)
	}
	if p.DepthEscalation < 0 {
		return fmt.Errorf("impact.depth_escalation must not be negative, got %d", p.DepthEscalation)
	}
	return nil
}

// Classify returns the risk band for count dependents reaching maxDepth.
func (p RiskPolicy) Classify(count, maxDepth int) RiskLevel {
	if count <= 0 {
		return RiskNone
	}
	level := 1
	switch {
	case count >= p.High:
		level = 3
	case count >= p.Medium:
		level = 2
	}
	if p.DepthEscalation > 0 && maxDepth >= p.DepthEscalation && level < 3 {
		level++
	}
	return riskOrder[level]
}

// Recommendation is the guidance attached to an impact report.
func (r RiskLevel) Recommendation() string {
	switch r {
	case RiskHigh:
		return "High impact change. Plan carefully, coordinate with the owners of dependent components and roll out incrementally."
	case RiskMedium:
		return "Moderate impact. Review the dependent components and add tests covering their integration points."
	case RiskLow:
		return "Low impact. Standard review and testing should be enough."
	default:
		return "Nothing depends on this node. The change is isolated."
	}
}
