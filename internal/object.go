package internal

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ObjectID is the content hash of a stored object.
type ObjectID [20]byte

// ZeroID identifies no object.
var ZeroID ObjectID

func ParseObjectID(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != hex.EncodedLen(len(id)) {
		return id, fmt.Errorf("object id %q: want %d hex characters", s, hex.EncodedLen(len(id)))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("object id %q: %w", s, err)
	}
	return id, nil
}

func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ObjectID) Short() string {
	return id.String()[:7]
}

func (id ObjectID) IsZero() bool {
	return id == ZeroID
}

type ObjectKind string

const (
	KindBlob   ObjectKind = "blob"
	KindTree   ObjectKind = "tree"
	KindCommit ObjectKind = "commit"
)

type EntryKind int

const (
	EntryOther EntryKind = iota
	EntryBlob
	EntryTree
)

func (k EntryKind) String() string {
	switch k {
	case EntryBlob:
		return "blob"
	case EntryTree:
		return "tree"
	default:
		return "other"
	}
}

type TreeEntry struct {
	Name string
	ID   ObjectID
	Kind EntryKind
}

type Tree struct {
	ID      ObjectID
	Entries []TreeEntry
}

type Blob struct {
	ID   ObjectID
	Size int64
}

type Commit struct {
	ID      ObjectID
	TreeID  ObjectID
	Parents []ObjectID
	Message string
}

// FirstParent returns the mainline parent, if any.
func (c *Commit) FirstParent() (ObjectID, bool) {
	if len(c.Parents) == 0 {
		return ZeroID, false
	}
	return c.Parents[0], true
}

// Summary returns the first non-blank line of the commit message, trimmed.
// A message that is blank or not valid UTF-8 has no readable summary.
func (c *Commit) Summary() (string, error) {
	if !utf8.ValidString(c.Message) {
		return "", &MalformedObjectError{ID: c.ID, Kind: KindCommit, Field: "summary", Reason: "message is not valid UTF-8"}
	}

	for line := range strings.Lines(c.Message) {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", &MalformedObjectError{ID: c.ID, Kind: KindCommit, Field: "summary", Reason: "message is empty"}
}

// ObjectStore resolves objects by id. Implementations must be safe for
// read-only use; walkers never write through them.
type ObjectStore interface {
	ResolveTree(ctx context.Context, id ObjectID) (*Tree, error)
	ResolveBlob(ctx context.Context, id ObjectID) (*Blob, error)
	ResolveCommit(ctx context.Context, id ObjectID) (*Commit, error)
	HeadCommit(ctx context.Context) (*Commit, error)
}

// Repository is an opened object store that holds resources until closed.
type Repository interface {
	ObjectStore
	Close() error
}
