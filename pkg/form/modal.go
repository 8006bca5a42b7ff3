package form

import "context"

// ModalKind classifies a transient notice.
type ModalKind string

const (
	ModalSuccess ModalKind = "success"
	ModalFailure ModalKind = "failure"
	ModalInfo    ModalKind = "info"
)

// Modal is a transient notice shown after a submission.
type Modal struct {
	Kind    ModalKind
	Message string
	// Fields holds the field errors behind a failure, if any.
	Fields map[string]string
}

// Presenter renders modals and confirmation prompts for a container.
type Presenter interface {
	Show(Modal)
	Dismiss()
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc asks the user to confirm message.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

type nopPresenter struct{}

func (nopPresenter) Show(Modal) {}
func (nopPresenter) Dismiss()   {}
func (nopPresenter) Confirm(context.Context, string) (bool, error) {
	return true, nil
}
