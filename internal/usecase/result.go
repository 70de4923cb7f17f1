package usecase

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MatchYes = "YES ✅"
	MatchNo  = "NO ❌"

	// MessageStagingFailed is reported when an upload cannot be written to disk.
	MessageStagingFailed = "Failed to save uploaded images."
	// MessageComparisonFailed stands in for errors that carry no text.
	MessageComparisonFailed = "Face comparison failed."
)

// ComparisonResult is the outcome of one comparison. Failed results are
// built by failure and always carry a Message.
type ComparisonResult struct {
	Match          bool
	Similarity     float64
	ProcessingTime time.Duration
	Message        string

	failed bool
}

func (r *ComparisonResult) Failed() bool {
	return r.failed
}

// Payload renders the result in the public response format.
func (r *ComparisonResult) Payload() map[string]any {
	if r.Failed() {
		return map[string]any{
			"match":            MatchNo,
			"similarity_score": json.Number("0.0"),
			"message":          r.Message,
		}
	}
	match := MatchNo
	if r.Match {
		match = MatchYes
	}
	return map[string]any{
		"match":            match,
		"similarity_score": formatDecimal(r.Similarity*100) + "%",
		"Processing time":  formatDecimal(r.ProcessingTime.Seconds()) + "seconds",
	}
}

// formatDecimal rounds to two decimals and always keeps a fractional part,
// e.g. 100 -> "100.0", 0.5349 -> "0.53". Values that round to zero print as
// "0.0": the sign of negative zero is dropped on purpose, unlike a plain
// "%.2f" rendering of the same value.
func formatDecimal(v float64) string {
	rounded := math.Round(v*100) / 100
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func failure(message string, elapsed time.Duration) *ComparisonResult {
	if message == "" {
		message = MessageComparisonFailed
	}
	return &ComparisonResult{Message: message, ProcessingTime: elapsed, failed: true}
}
