package docstore

import (
	"fmt"
	"strings"
)

// Well-known top-level collections.
const (
	Users      = "Users"
	Events     = "Events"
	AdminCodes = "Admin_Codes"
)

// Path addresses a node in the document tree, e.g. Users/alice/Password.
type Path []string

// forbidden mirrors the characters the hosted tree store rejects in keys.
const forbidden = ".$#[]/"

// P builds a path from segments without validating them.
func P(segments ...string) Path {
	return Path(segments)
}

// ParsePath splits a slash-separated path and validates every segment.
func ParsePath(raw string) (Path, error) {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return Path{}, nil
	}
	p := Path(strings.Split(trimmed, "/"))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate reports ErrInvalidPath for empty segments or segments carrying
// characters the store cannot hold in a key.
func (p Path) Validate() error {
	for _, seg := range p {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, p.String())
		}
		if strings.ContainsAny(seg, forbidden) {
			return fmt.Errorf("%w: segment %q", ErrInvalidPath, seg)
		}
	}
	return nil
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Child returns a new path with seg appended. The receiver is never mutated.
func (p Path) Child(seg ...string) Path {
	out := make(Path, 0, len(p)+len(seg))
	out = append(out, p...)
	return append(out, seg...)
}

// Collection returns the first segment, or "" for the root.
func (p Path) Collection() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// UserPath is Users/{id}.
func UserPath(id string) Path { return P(Users, id) }

// EventPath is Events/{id}.
func EventPath(id string) Path { return P(Events, id) }

// ValidKey reports whether s can be used as a single path segment.
func ValidKey(s string) bool {
	return s != "" && !strings.ContainsAny(s, forbidden)
}
