package models

import "fmt"

// Action is a privilege-bearing verb on a repository.
// The set is closed: download (read) and upload (write). The transfer
// layer's verify step maps onto the upload privilege and never appears
// in a privilege grant.
type Action string

const (
	// ActionDownload grants read access to a repository's objects
	ActionDownload Action = "download"

	// ActionUpload grants write access to a repository's objects
	ActionUpload Action = "upload"
)

// ParseAction converts a string into an Action, rejecting anything
// outside the closed set.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionDownload:
		return ActionDownload, nil
	case ActionUpload:
		return ActionUpload, nil
	default:
		return "", fmt.Errorf("invalid action %q", s)
	}
}

// String implements fmt.Stringer
func (a Action) String() string {
	return string(a)
}
