package classifier

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatPredictions encodes pairs as "label:prob,label:prob" for storage
func FormatPredictions(pairs []Prediction) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Label + ":" + strconv.FormatFloat(float64(p.Probability), 'g', -1, 32)
	}
	return strings.Join(parts, ",")
}

// ParsePredictions decodes the FormatPredictions text. The empty string is an
// empty list, which is what pre-ranking history rows carry.
func ParsePredictions(s string) ([]Prediction, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []Prediction{}, nil
	}

	parts := strings.Split(s, ",")
	out := make([]Prediction, 0, len(parts))
	for _, part := range parts {
		idx := strings.LastIndex(part, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("malformed prediction %q", part)
		}
		prob, err := strconv.ParseFloat(part[idx+1:], 32)
		if err != nil {
			return nil, fmt.Errorf("malformed probability in %q: %w", part, err)
		}
		out = append(out, Prediction{Label: part[:idx], Probability: float32(prob)})
	}
	return out, nil
}
