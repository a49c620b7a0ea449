package accounts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

// Store performs the raw writes on user records. It does no input checking;
// Service runs the validation flows before calling it.
type Store struct {
	db docstore.Store
}

func NewStore(db docstore.Store) *Store {
	return &Store{db: db}
}

// InsertNewUser writes Users/id unconditionally, replacing any existing
// record including its enrolled events. The record starts a new session.
func (s *Store) InsertNewUser(ctx context.Context, id, password string, isAdmin bool) error {
	return s.db.Set(ctx, docstore.UserPath(id), userRecord{
		Password: password,
		Admin:    docstore.Flag(isAdmin),
		Session:  newSession(),
	})
}

// ChangeUserID copies Users/oldID to Users/newID with a new session and then
// removes the old record. It is a no-op when the old record is absent or the ids are equal.
//
// The two writes are not atomic. If the removal fails, both records exist
// until the call is repeated, and readers may see the duplicate in between.
// Event rosters keep referencing oldID until a reconciliation sweep runs.
func (s *Store) ChangeUserID(ctx context.Context, oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	raw, err := s.db.Get(ctx, docstore.UserPath(oldID))
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("decode user %q: %w", oldID, err)
	}
	session, _ := json.Marshal(newSession())
	fields[sessionField] = session
	if err := s.db.Set(ctx, docstore.UserPath(newID), fields); err != nil {
		return err
	}
	return s.db.Remove(ctx, docstore.UserPath(oldID))
}

// ChangePassword replaces the stored password and the session. It returns
// ErrUserNotFound instead of creating a record that holds only a password.
func (s *Store) ChangePassword(ctx context.Context, id, password string) error {
	raw, err := s.db.Get(ctx, docstore.UserPath(id))
	if err != nil {
		return err
	}
	if raw == nil {
		return ErrUserNotFound
	}
	return s.db.Update(ctx, docstore.UserPath(id), map[string]any{"Password": password, sessionField: newSession()})
}

// EnsureSession returns the session of Users/id, creating one for records
// written before sessions existed. It returns ErrUserNotFound when the record
// is absent.
func (s *Store) EnsureSession(ctx context.Context, id string) (string, error) {
	raw, err := s.db.Get(ctx, docstore.UserPath(id))
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", ErrUserNotFound
	}
	user, err := decodeUser(id, raw)
	if err != nil {
		return "", err
	}
	if user.Session != "" {
		return user.Session, nil
	}
	session := newSession()
	if err := s.db.Update(ctx, docstore.UserPath(id), map[string]any{sessionField: session}); err != nil {
		return "", err
	}
	return session, nil
}

// RemoveAccount deletes Users/id. Events the user was enrolled in still list
// the id afterwards.
func (s *Store) RemoveAccount(ctx context.Context, id string) error {
	return s.db.Remove(ctx, docstore.UserPath(id))
}
