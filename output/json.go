package output

import (
	"encoding/json"
	"io"

	"github.com/vegasq/mapcheck/outcome"
)

// JSONFormatter outputs outcomes as JSON Lines
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per outcome
func (j *JSONFormatter) Format(outcomes []outcome.Outcome) error {
	encoder := json.NewEncoder(j.writer)
	for i := range outcomes {
		if err := encoder.Encode(&outcomes[i]); err != nil {
			return err
		}
	}
	return nil
}
