package diagnose

import (
	"errors"
	"fmt"
)

// EncodingError: загрузку не удалось прочитать, она пустая или это не картинка.
type EncodingError struct {
	Reason string
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("encode image: %s: %v", e.Reason, e.Err)
	}
	return "encode image: " + e.Reason
}

func (e *EncodingError) Unwrap() error { return e.Err }

// TransportError covers connection failures, timeouts and non-2xx answers.
type TransportError struct {
	Engine     string
	StatusCode int // 0 when no HTTP response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s classify %d: %s", e.Engine, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s classify: %v", e.Engine, e.Err)
	default:
		return e.Engine + " classify: transport failure"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Причины ошибки извлечения.
const (
	ReasonEmptyCompletion = "empty_completion"
	ReasonNoJSON          = "no_json"
	ReasonMalformedJSON   = "malformed_json"
	ReasonMissingKey      = "missing_key"
	ReasonWrongType       = "wrong_type"
)

// ExtractionError keeps the raw reply so it can be shown to the user.
type ExtractionError struct {
	Reason string
	Key    string // set for missing_key / wrong_type
	Raw    string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := "unexpected response format: " + e.Reason
	if e.Key != "" {
		msg += " (" + e.Key + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

const (
	KindEncoding   = "encoding"
	KindTransport  = "transport"
	KindExtraction = "extraction"
)

// ErrorKind classifies err into one of the three failure kinds, "" if none.
func ErrorKind(err error) string {
	var (
		ee *EncodingError
		te *TransportError
		xe *ExtractionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ee):
		return KindEncoding
	case errors.As(err, &te):
		return KindTransport
	case errors.As(err, &xe):
		return KindExtraction
	default:
		return ""
	}
}
