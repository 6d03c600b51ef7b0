package diagnosis

import (
	"fmt"
	"strings"

	"symptom-checker/internal/severity"
)

const (
	noDescription = "No description available."
	noPrecautions = "No specific precautions available."
)

type Condition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Report is the outcome of one concluded diagnosis cycle. It is never
// modified after it is built.
type Report struct {
	Conditions   []Condition         `json:"conditions"`
	Disagreement bool                `json:"disagreement"`
	Symptoms     []string            `json:"symptoms"`
	Days         int                 `json:"days"`
	Severity     severity.Assessment `json:"severity"`
	Precautions  []string            `json:"precautions"`
	Text         string              `json:"text"`
}

// Summary names the predicted condition, or both when the classifiers
// disagree.
func (r *Report) Summary() string {
	return strings.Join(r.ConditionNames(), " or ")
}

func (r *Report) ConditionNames() []string {
	names := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		names[i] = c.Name
	}
	return names
}

func buildReport(ref Reference, primary, secondary string, symptoms []string, days int, a severity.Assessment) *Report {
	r := &Report{
		Symptoms: append([]string(nil), symptoms...),
		Days:     days,
		Severity: a,
	}
	for _, name := range []string{primary, secondary} {
		if name == "" || (len(r.Conditions) > 0 && name == r.Conditions[0].Name) {
			continue
		}
		desc, ok := ref.Description(name)
		if !ok {
			desc = noDescription
		}
		r.Conditions = append(r.Conditions, Condition{Name: name, Description: desc})
	}
	r.Disagreement = len(r.Conditions) > 1
	if steps, ok := ref.Precautions(primary); ok {
		for _, s := range steps {
			if s != "" {
				r.Precautions = append(r.Precautions, s)
			}
		}
	}
	if len(r.Precautions) == 0 {
		r.Precautions = []string{noPrecautions}
	}
	r.Text = r.render()
	return r
}

func (r *Report) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your symptoms, you may have %s.\n", r.Summary())
	if r.Disagreement {
		for _, c := range r.Conditions {
			fmt.Fprintf(&b, "%s: %s\n", c.Name, c.Description)
		}
	} else {
		fmt.Fprintf(&b, "Description: %s\n", r.Conditions[0].Description)
	}
	fmt.Fprintf(&b, "The condition appears to be %s.\n", r.Severity.Band)
	fmt.Fprintf(&b, "%s\n", r.Severity.Advice())
	b.WriteString("Precautions:\n")
	for i, p := range r.Precautions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	b.WriteString("Please consult a doctor for proper diagnosis and treatment.")
	return b.String()
}
