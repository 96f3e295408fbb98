// Package session holds the per-user view state and the update that
// turns a form submission into a new view.
package session

import (
	"github.com/newthinker/btdesk/internal/core"
	"github.com/newthinker/btdesk/internal/form"
)

// MsgFetchFailed is shown for every backend failure.
const MsgFetchFailed = "Failed to fetch data. Check the backend."

// NoticeKind distinguishes the two error kinds surfaced to the user.
type NoticeKind string

const (
	NoticeValidation NoticeKind = "validation"
	NoticeFailure    NoticeKind = "failure"
)

// Notice is a blocking message that must be acknowledged.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// View is the complete UI state. It is treated as immutable: updates
// produce a new View.
type View struct {
	Form   form.State
	Result *core.Result
	Busy   bool
	Notice *Notice
}

// NewView returns the initial state: empty form, no result.
func NewView() View {
	return View{Form: form.New()}
}

// WithForm replaces the form values.
func (v View) WithForm(f form.State) View {
	v.Form = f
	return v
}

// DismissNotice acknowledges the pending notice.
func (v View) DismissNotice() View {
	v.Notice = nil
	return v
}
