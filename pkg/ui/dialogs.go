// pkg/ui/dialogs.go - blocking message boxes for the deployment run.

package ui

import (
	"github.com/gonutz/w32/v2"
)

// Choice is the user's answer to a closure prompt.
type Choice int

const (
	ChoiceClose Choice = iota
	ChoiceDefer
)

// PromptCloseOrDefer asks the user to close the blocking applications now
// or postpone the deployment. Blocks until answered.
func PromptCloseOrDefer(title, text string) Choice {
	ret := w32.MessageBox(0, text, title,
		w32.MB_YESNO|w32.MB_ICONEXCLAMATION|w32.MB_SYSTEMMODAL|w32.MB_DEFBUTTON1)
	if ret == w32.IDNO {
		return ChoiceDefer
	}
	return ChoiceClose
}

// Inform shows a blocking informational dialog.
func Inform(title, text string) {
	w32.MessageBox(0, text, title,
		w32.MB_OK|w32.MB_ICONINFORMATION|w32.MB_SYSTEMMODAL)
}

// Fail shows a blocking error dialog.
func Fail(title, text string) {
	w32.MessageBox(0, text, title,
		w32.MB_OK|w32.MB_ICONERROR|w32.MB_SYSTEMMODAL)
}
