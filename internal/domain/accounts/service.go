package accounts

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/audit"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/sanitize"
)

// Service runs the account flows: input checks first, then store access.
// Inputs containing injection symbols never reach the store.
type Service struct {
	store       *Store
	validator   *Validator
	auditLogger *audit.Logger
	logger      zerolog.Logger
}

// NewService creates a new account service instance
func NewService(db docstore.Store, auditLogger *audit.Logger, logger zerolog.Logger) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop()
	}
	return &Service{
		store:       NewStore(db),
		validator:   NewValidator(db),
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "accounts").Logger(),
	}
}

func (s *Service) Validator() *Validator { return s.validator }

// SignUpParams contains the values entered on signup
type SignUpParams struct {
	UserID    string
	Password  string
	AdminCode string
}

// SignUp creates a user after checking every field. All checks run and the
// last failing check for a field decides that field's error. A non-blank
// valid admin code makes the account an admin.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*User, error) {
	var c checks
	idClean := sanitize.IsClean(params.UserID)
	codeClean := sanitize.IsClean(params.AdminCode)

	if !idClean {
		c.fail(FieldUserID, CodeInjection)
	}
	if !sanitize.IsClean(params.Password) {
		c.fail(FieldPassword, CodeInjection)
	}
	if !codeClean {
		c.fail(FieldAdminCode, CodeInjection)
	}
	if idClean && !blank(params.UserID) {
		if !docstore.ValidKey(params.UserID) {
			c.fail(FieldUserID, CodeInvalidID)
		} else {
			existing, err := s.validator.GetUserID(ctx, params.UserID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				c.fail(FieldUserID, CodeExists)
			}
		}
	}
	if blank(params.UserID) {
		c.fail(FieldUserID, CodeEmptyID)
	}
	if blank(params.Password) {
		c.fail(FieldPassword, CodeEmptyPassword)
	}
	isAdmin := false
	if codeClean && !blank(params.AdminCode) {
		ok, err := s.validator.AuthenticateAdminCode(ctx, params.AdminCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.fail(FieldAdminCode, CodeAdminCode)
		}
		isAdmin = ok
	}
	if err := c.err(); err != nil {
		s.auditLogger.LogFailure(ctx, "account.signup", params.UserID, "user", params.UserID, codes(err))
		return nil, err
	}

	if err := s.store.InsertNewUser(ctx, params.UserID, params.Password, isAdmin); err != nil {
		return nil, err
	}
	session, err := s.store.EnsureSession(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", params.UserID).Bool("admin", isAdmin).Msg("account created")
	s.auditLogger.LogSuccess(ctx, "account.signup", params.UserID, "user", params.UserID, nil)
	return &User{ID: params.UserID, Password: params.Password, IsAdmin: isAdmin, EnrolledEvents: []string{}, Session: session}, nil
}

// LogIn returns the user when the credentials match. Rejections carry a
// single error on the user_id field.
func (s *Service) LogIn(ctx context.Context, userID, password string) (*User, error) {
	if !sanitize.IsClean(userID) || !sanitize.IsClean(password) {
		return nil, ValidationErrors{{Field: FieldUserID, Code: CodeInjection}}
	}
	user, err := s.validator.GetUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil || !passwordsMatch(user.Password, password) {
		s.auditLogger.LogFailure(ctx, "account.login", userID, "user", userID, nil)
		return nil, ValidationErrors{{Field: FieldUserID, Code: CodeCredentials}}
	}
	if user.Session == "" {
		if user.Session, err = s.store.EnsureSession(ctx, userID); err != nil {
			return nil, err
		}
	}
	s.auditLogger.LogSuccess(ctx, "account.login", userID, "user", userID, nil)
	return user, nil
}

// Session returns the current session of userID, creating one for records
// that predate sessions.
func (s *Service) Session(ctx context.Context, userID string) (string, error) {
	return s.store.EnsureSession(ctx, userID)
}

// Rename moves the account of oldID to newID. The first failing check is
// reported. See Store.ChangeUserID for the consistency window.
func (s *Service) Rename(ctx context.Context, oldID, newID string) error {
	switch {
	case !sanitize.IsClean(newID):
		return ValidationErrors{{Field: FieldUserID, Code: CodeInjection}}
	case blank(newID):
		return ValidationErrors{{Field: FieldUserID, Code: CodeEmptyID}}
	case !docstore.ValidKey(newID):
		return ValidationErrors{{Field: FieldUserID, Code: CodeInvalidID}}
	}
	if newID == oldID {
		return nil
	}
	existing, err := s.validator.GetUserID(ctx, newID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ValidationErrors{{Field: FieldUserID, Code: CodeExists}}
	}
	current, err := s.validator.GetUserID(ctx, oldID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrUserNotFound
	}

	if err := s.store.ChangeUserID(ctx, oldID, newID); err != nil {
		s.logger.Error().Err(err).Str("old_id", oldID).Str("new_id", newID).Msg("rename failed")
		return err
	}
	s.auditLogger.LogSuccess(ctx, "account.rename", oldID, "user", newID, map[string]string{"old_id": oldID})
	return nil
}

// ChangePassword replaces the password of an existing account. Tokens issued
// before the change stop working.
func (s *Service) ChangePassword(ctx context.Context, userID, password string) error {
	switch {
	case !sanitize.IsClean(password):
		return ValidationErrors{{Field: FieldPassword, Code: CodeInjection}}
	case blank(password):
		return ValidationErrors{{Field: FieldPassword, Code: CodeEmptyPassword}}
	}
	if err := s.store.ChangePassword(ctx, userID, password); err != nil {
		return err
	}
	s.auditLogger.LogSuccess(ctx, "account.password_change", userID, "user", userID, nil)
	return nil
}

// RemoveAccount deletes the account. Event rosters are left untouched.
func (s *Service) RemoveAccount(ctx context.Context, userID string) error {
	if err := s.store.RemoveAccount(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("account removed")
	s.auditLogger.LogSuccess(ctx, "account.remove", userID, "user", userID, nil)
	return nil
}

func codes(err error) map[string]string {
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		out[e.Field] = string(e.Code)
	}
	return out
}
