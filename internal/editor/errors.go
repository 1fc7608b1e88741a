package editor

import "errors"

var (
	// pre-flight: no request is sent
	ErrEmptyDishList    = errors.New("add at least one dish")
	ErrNoRating         = errors.New("select a rating")
	ErrNotAuthenticated = errors.New("you need to be signed in to post a review")

	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrAlreadySubmitted = errors.New("this review has already been posted")
	ErrSlotOutOfRange   = errors.New("dish slot out of range")
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
	ErrClosed           = errors.New("editor closed")
)

// ServerRejectedError is a non-2xx answer from the Review Service.
type ServerRejectedError struct {
	Status  int
	Message string
}

func (e *ServerRejectedError) Error() string {
	return e.Message
}

// TransportError is a failure to get any answer from the Review Service.
// Its message is the message of the innermost cause.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	cause := e.Err
	for {
		next := errors.Unwrap(cause)
		if next == nil {
			return cause.Error()
		}
		cause = next
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
