package accounts

import (
	"context"
	"crypto/subtle"
	"encoding/json"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

// Validator answers read-only questions about accounts and admin codes.
// Absence is never an error; store failures are returned as they come.
type Validator struct {
	db docstore.Store
}

func NewValidator(db docstore.Store) *Validator {
	return &Validator{db: db}
}

// GetUserID returns the user stored under id, or nil when there is none.
// Ids that cannot be a path segment cannot exist and also return nil.
func (v *Validator) GetUserID(ctx context.Context, id string) (*User, error) {
	if !docstore.ValidKey(id) {
		return nil, nil
	}
	raw, err := v.db.Get(ctx, docstore.UserPath(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return decodeUser(id, raw)
}

// GetPassword returns the stored password and whether the user exists.
func (v *Validator) GetPassword(ctx context.Context, id string) (string, bool, error) {
	user, err := v.GetUserID(ctx, id)
	if err != nil || user == nil {
		return "", false, err
	}
	return user.Password, true, nil
}

// AuthenticateUser reports whether id exists and its stored password equals
// password exactly.
func (v *Validator) AuthenticateUser(ctx context.Context, id, password string) (bool, error) {
	stored, ok, err := v.GetPassword(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return passwordsMatch(stored, password), nil
}

func passwordsMatch(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// AuthenticateAdminCode reports whether code equals any value under
// Admin_Codes. The empty code never matches.
func (v *Validator) AuthenticateAdminCode(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	raw, err := v.db.Get(ctx, docstore.P(docstore.AdminCodes))
	if err != nil {
		return false, err
	}
	codes, err := docstore.Children(raw)
	if err != nil {
		return false, err
	}
	for _, key := range docstore.SortedKeys(codes) {
		var stored any
		if err := json.Unmarshal(codes[key], &stored); err != nil {
			continue
		}
		if s, ok := stored.(string); ok && subtle.ConstantTimeCompare([]byte(s), []byte(code)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// AddAdminCode stores code under Admin_Codes/key.
func (v *Validator) AddAdminCode(ctx context.Context, key, code string) error {
	return v.db.Set(ctx, docstore.P(docstore.AdminCodes, key), code)
}

// SessionValid reports whether userID exists and its current session equals
// session. Tokens for a removed, renamed or re-created account fail here.
func (v *Validator) SessionValid(ctx context.Context, userID, session string) (bool, error) {
	if session == "" {
		return false, nil
	}
	user, err := v.GetUserID(ctx, userID)
	if err != nil || user == nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(user.Session), []byte(session)) == 1, nil
}
