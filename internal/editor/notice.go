package editor

import "errors"

type NoticeKind int

const (
	NoticeValidation NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a user-facing dialog. Success notices wait for Acknowledge.
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
}

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

func validationNotice(err error) Notice {
	switch {
	case errors.Is(err, ErrEmptyDishList):
		return Notice{Kind: NoticeValidation, Title: "Add a dish", Message: "Please add at least one dish you tried."}
	case errors.Is(err, ErrNoRating):
		return Notice{Kind: NoticeValidation, Title: "Add a rating", Message: "Please select a rating."}
	default:
		return Notice{Kind: NoticeValidation, Title: "Check your review", Message: err.Error()}
	}
}

func successNotice() Notice {
	return Notice{Kind: NoticeSuccess, Title: "Success", Message: "Your review has been posted!"}
}

// errorNotice surfaces the failure message as-is.
func errorNotice(err error) Notice {
	var rejected *ServerRejectedError
	if errors.As(err, &rejected) {
		return Notice{Kind: NoticeError, Title: "Error", Message: rejected.Message}
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return Notice{Kind: NoticeError, Title: "Error", Message: ErrNotAuthenticated.Error()}
	}
	return Notice{Kind: NoticeError, Title: "Error", Message: err.Error()}
}
