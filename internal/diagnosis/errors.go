package diagnosis

import "errors"

var (
	ErrUnknownSymptom  = errors.New("unknown symptom")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidYesNo    = errors.New("expected yes or no")
	ErrInvalidQuery    = errors.New("query must start with 'tell me about'")
	ErrSessionNotFound = errors.New("session not found")
)

// Error codes carried by TurnResult.Error.
const (
	CodeUnknownSymptom  = "unknown_symptom"
	CodeInvalidDuration = "invalid_duration"
	CodeInvalidYesNo    = "invalid_yes_no"
	CodeInvalidQuery    = "invalid_query"
	CodeInternal        = "internal"
)

func codeFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownSymptom):
		return CodeUnknownSymptom
	case errors.Is(err, ErrInvalidDuration):
		return CodeInvalidDuration
	case errors.Is(err, ErrInvalidYesNo):
		return CodeInvalidYesNo
	case errors.Is(err, ErrInvalidQuery):
		return CodeInvalidQuery
	default:
		return CodeInternal
	}
}
