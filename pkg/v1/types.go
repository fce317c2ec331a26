package v1

import "github.com/4thel00z/gitwalk/internal"

// Blob is a blob reached from a tree.
type Blob struct {
	Path string `json:"path"`
	ID   string `json:"id"`
	Size int64  `json:"size"`
}

// CommitSummary is one commit on a first-parent history walk.
type CommitSummary struct {
	Hash    string `json:"hash"`
	Summary string `json:"summary"`
	TreeID  string `json:"tree"`
}

// Errors returned by the client. Use errors.As to tell them apart.
type (
	ResolutionError      = internal.ResolutionError
	MalformedObjectError = internal.MalformedObjectError
	OpenError            = internal.OpenError
	CloneError           = internal.CloneError
)

var (
	ErrObjectNotFound  = internal.ErrObjectNotFound
	ErrInvalidLocation = internal.ErrInvalidLocation
)
