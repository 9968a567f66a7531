package extraction

import "fmt"

// Failure reasons.
const (
	ReasonEmptyPayload      = "empty_payload"
	ReasonNoStructuredData  = "no_structured_data"
	ReasonUnsupportedFormat = "unsupported_payload"
)

// ExtractionFailure reports that no compliance record could be found in a
// payload. Preview holds the start of the inspected text for diagnostics.
type ExtractionFailure struct {
	Reason  string
	Preview string
}

// Error implements the error interface.
func (e *ExtractionFailure) Error() string {
	if e.Preview == "" {
		return fmt.Sprintf("extraction failed [%s]", e.Reason)
	}
	return fmt.Sprintf("extraction failed [%s]: %q", e.Reason, e.Preview)
}
