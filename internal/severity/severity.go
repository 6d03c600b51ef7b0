// Package severity scores a confirmed symptom set.
//
// Score = round(sum(weight) * days / (n + 1)). The band and the "see a
// doctor" gate are separate checks on that quantity: the band uses the
// rounded score with cut-offs 3 and 6, the gate compares the unrounded value
// against 13.
package severity

import (
	"fmt"
	"math"
)

type Band string

const (
	Mild     Band = "mild"
	Moderate Band = "moderate"
	Severe   Band = "severe"
)

const (
	mildMax     = 3
	moderateMax = 6
	doctorGate  = 13.0
)

// Weigher looks up the severity weight of a symptom. Unknown symptoms weigh 0.
type Weigher interface {
	Weight(symptom string) int
}

type Assessment struct {
	Sum           int     `json:"sum"`
	Normalized    float64 `json:"normalized"`
	Score         int     `json:"score"`
	Band          Band    `json:"band"`
	ConsultDoctor bool    `json:"consult_doctor"`
}

// RawSum adds up the weights of symptoms.
func RawSum(w Weigher, symptoms []string) int {
	sum := 0
	for _, s := range symptoms {
		sum += w.Weight(s)
	}
	return sum
}

func BandFor(score int) Band {
	switch {
	case score <= mildMax:
		return Mild
	case score <= moderateMax:
		return Moderate
	default:
		return Severe
	}
}

// Assess scores symptoms over days. days must be positive.
func Assess(w Weigher, symptoms []string, days int) (Assessment, error) {
	if days <= 0 {
		return Assessment{}, fmt.Errorf("days must be positive, got %d", days)
	}
	sum := RawSum(w, symptoms)
	normalized := float64(sum*days) / float64(len(symptoms)+1)
	// halves round to even: 6.5 scores 6, 7.5 scores 8
	score := int(math.RoundToEven(normalized))
	return Assessment{
		Sum:           sum,
		Normalized:    normalized,
		Score:         score,
		Band:          BandFor(score),
		ConsultDoctor: normalized > doctorGate,
	}, nil
}

// Advice is the user-facing line for the doctor gate.
func (a Assessment) Advice() string {
	if a.ConsultDoctor {
		return "You should take the consultation from doctor."
	}
	return "It might not be that bad but you should take precautions."
}
