// Package accounts owns the Users subtree of the document store: account
// records, credential checks and the signup/login/account-change flows.
//
// Passwords are stored and compared in clear text, exactly as they were
// entered. This is a known weakness of the data model and is kept for
// compatibility with existing records.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// User is the decoded form of Users/{id}.
type User struct {
	ID             string
	Password       string
	IsAdmin        bool
	EnrolledEvents []string
	// Session is the nonce carried by tokens issued for this record. It is
	// replaced on rename and password change, and a re-created account gets
	// a new one, so older tokens stop matching.
	Session string
}

// userRecord is the wire layout of a user node.
type userRecord struct {
	Password       string              `json:"Password"`
	Admin          docstore.Flag       `json:"Admin"`
	EnrolledEvents docstore.StringList `json:"enrolled_events,omitempty"`
	Session        string              `json:"session,omitempty"`
}

// sessionField is the record field holding User.Session.
const sessionField = "session"

func newSession() string { return uuid.NewString() }

func decodeUser(id string, raw json.RawMessage) (*User, error) {
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode user %q: %w", id, err)
	}
	events := []string(rec.EnrolledEvents)
	if events == nil {
		events = []string{}
	}
	return &User{
		ID:             id,
		Password:       rec.Password,
		IsAdmin:        bool(rec.Admin),
		EnrolledEvents: events,
		Session:        rec.Session,
	}, nil
}
