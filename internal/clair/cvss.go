package clair

import (
	"strings"

	gocvss20 "github.com/pandatix/go-cvss/20"
)

// Report labels of the CVSSv2 base metrics.
const (
	AccessVector          = "Access Vector"
	AccessComplexity      = "Access Complexity"
	Authentication        = "Authentication"
	ConfidentialityImpact = "Confidentiality impact"
	IntegrityImpact       = "Integrity impact"
	AvailabilityImpact    = "Availability impact"
)

type metric struct {
	label  string
	values map[string]string
}

var impactValues = map[string]string{"N": "None", "P": "Partial", "C": "Complete"}

var cvss2Metrics = map[string]metric{
	"AV": {AccessVector, map[string]string{"L": "Local", "A": "Adjacent Network", "N": "Network"}},
	"AC": {AccessComplexity, map[string]string{"H": "High", "M": "Medium", "L": "Low"}},
	"Au": {Authentication, map[string]string{"M": "Multiple", "S": "Single", "N": "None"}},
	"C":  {ConfidentialityImpact, impactValues},
	"I":  {IntegrityImpact, impactValues},
	"A":  {AvailabilityImpact, impactValues},
}

// SplitVectors decodes a CVSSv2 base vector such as `AV:N/AC:L/Au:N/C:N/I:N`
// into its six labelled metrics. Metrics that are absent or unknown are
// empty, and a segment without `:` empties the whole result. It never
// fails: Clair often sends partial vectors, which stricter parsers reject.
func SplitVectors(vector string) map[string]string {
	out := make(map[string]string, len(cvss2Metrics))
	for _, m := range cvss2Metrics {
		out[m.label] = ""
	}
	if vector == "" {
		return out
	}

	decoded := make(map[string]string, len(cvss2Metrics))
	for _, segment := range strings.Split(vector, "/") {
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			return out
		}
		if m, known := cvss2Metrics[key]; known {
			decoded[m.label] = m.values[value]
		}
	}

	for label, value := range decoded {
		out[label] = value
	}

	return out
}

// baseScore computes the CVSSv2 base score of a complete vector.
func baseScore(vector string) (float64, bool) {
	if vector == "" {
		return 0, false
	}

	cvss, err := gocvss20.ParseVector(vector)
	if err != nil {
		return 0, false
	}

	return cvss.BaseScore(), true
}
