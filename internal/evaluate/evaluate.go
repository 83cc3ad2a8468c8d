// Package evaluate scores a summary against the policies expected of the
// network, and compares summaries with each other.
package evaluate

import (
	"github.com/dusk-indust/flowrank/internal/graph"
	"github.com/dusk-indust/flowrank/internal/policy"
)

// Confusion is a confusion matrix over the edges of a summary.
type Confusion struct {
	TruePositive  int `json:"truePositive"`
	FalsePositive int `json:"falsePositive"`
	FalseNegative int `json:"falseNegative"`
	TrueNegative  int `json:"trueNegative"`
	// Tolerated counts insights that are not expected policies but are
	// consequences of a path preference. They are in none of the cells.
	Tolerated int `json:"tolerated"`
}

// Scores derived from a confusion matrix. A ratio whose denominator is
// zero is reported as 0.
type Scores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Accuracy  float64 `json:"accuracy"`
	F1        float64 `json:"f1"`
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func (c Confusion) Precision() float64 {
	return ratio(float64(c.TruePositive), float64(c.TruePositive+c.FalsePositive))
}

func (c Confusion) Recall() float64 {
	return ratio(float64(c.TruePositive), float64(c.TruePositive+c.FalseNegative))
}

func (c Confusion) Accuracy() float64 {
	total := c.TruePositive + c.FalsePositive + c.FalseNegative + c.TrueNegative
	return ratio(float64(c.TruePositive+c.TrueNegative), float64(total))
}

func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	return ratio(2*p*r, p+r)
}

// Scores computes every score at once.
func (c Confusion) Scores() Scores {
	return Scores{Precision: c.Precision(), Recall: c.Recall(), Accuracy: c.Accuracy(), F1: c.F1()}
}

// Evaluate classifies every edge of s as insight or not under opts and
// compares the result with the expected policies. Path preferences count
// as their primary reachability fact; their other consequences are
// tolerated when reported.
func Evaluate(s *graph.Summary, policies []policy.Policy, opts graph.InsightOptions) Confusion {
	expected := policy.Reachabilities(policies)
	tolerated := policy.Tolerated(policies)

	var c Confusion
	for _, fe := range s.FlowEdges() {
		p := policy.FromEdge(fe.Flow, fe.Edge)
		insight := s.IsInsight(fe.Flow, fe.Edge, opts)
		switch {
		case insight && expected.Contains(p):
			c.TruePositive++
		case insight && tolerated.Contains(p):
			c.Tolerated++
		case insight:
			c.FalsePositive++
		case expected.Contains(p):
			c.FalseNegative++
		default:
			c.TrueNegative++
		}
	}
	return c
}

// PrecisionRecall compares a reported policy set with the expected one:
// precision is the share of reported policies that are expected, recall
// the share of expected policies that were reported.
func PrecisionRecall(reported, expected policy.Set) (precision, recall float64) {
	correct := 0
	for p := range reported {
		if expected.Contains(p) {
			correct++
		}
	}
	return ratio(float64(correct), float64(reported.Len())), ratio(float64(correct), float64(expected.Len()))
}
