package matching

import "fmt"

// MatchError is a candidate-supply failure with a machine-readable code.
type MatchError struct {
	Code    string
	Message string
}

func (e MatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const (
	CodeInvalidCriteria   = "invalid_criteria"
	CodeSupplyUnavailable = "supply_unavailable"
)
