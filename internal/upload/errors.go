package upload

import (
	"errors"
	"fmt"
)

// GenericFailure is shown when the server rejects an upload or a failure has no message
const GenericFailure = "Failed to upload receipt"

// ErrUploadInProgress is returned by Submit while another upload is outstanding
var ErrUploadInProgress = errors.New("an upload is already in progress")

// ErrorKind classifies a failed upload
type ErrorKind int

const (
	// KindTransport is a network failure or an aborted request
	KindTransport ErrorKind = iota
	// KindRejected is a non-2xx response
	KindRejected
	// KindMalformed is a 2xx response whose body is not a receipt
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by Client.Upload
type Error struct {
	Kind   ErrorKind
	Status int // HTTP status, zero for transport failures
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRejected:
		return fmt.Sprintf("receipt upload rejected (status %d)", e.Status)
	default:
		if e.Err == nil {
			return fmt.Sprintf("receipt upload failed (%s)", e.Kind)
		}
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user for err
func Message(err error) string {
	var uerr *Error
	if errors.As(err, &uerr) {
		if uerr.Kind == KindRejected || uerr.Err == nil || uerr.Err.Error() == "" {
			return GenericFailure
		}
		return uerr.Err.Error()
	}
	if err == nil || err.Error() == "" {
		return GenericFailure
	}
	return err.Error()
}
