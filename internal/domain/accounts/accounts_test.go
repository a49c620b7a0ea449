package accounts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/memory"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore/storetest"
)

func newService(t *testing.T) (*Service, docstore.Store) {
	t.Helper()
	db := memory.New()
	return NewService(db, nil, zerolog.Nop()), db
}

func requireCodes(t *testing.T, err error, want map[string]Code) {
	t.Helper()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	got := make(map[string]Code, len(verrs))
	for _, e := range verrs {
		got[e.Field] = e.Code
	}
	require.Equal(t, want, got)
}

func TestInsertedUsersDoNotCrossContaminate(t *testing.T) {
	db := memory.New()
	store := NewStore(db)
	validator := NewValidator(db)
	ctx := context.Background()

	require.NoError(t, store.InsertNewUser(ctx, "alice", "a-pw", false))
	require.NoError(t, store.InsertNewUser(ctx, "bob", "b-pw", true))

	alice, err := validator.GetUserID(ctx, "alice")
	require.NoError(t, err)
	bob, err := validator.GetUserID(ctx, "bob")
	require.NoError(t, err)

	require.NotEmpty(t, alice.Session)
	require.NotEqual(t, alice.Session, bob.Session)
	alice.Session, bob.Session = "", ""
	require.Equal(t, &User{ID: "alice", Password: "a-pw", EnrolledEvents: []string{}}, alice)
	require.Equal(t, &User{ID: "bob", Password: "b-pw", IsAdmin: true, EnrolledEvents: []string{}}, bob)
}

func TestGetUserIDAbsentIsNotAnError(t *testing.T) {
	validator := NewValidator(memory.New())
	ctx := context.Background()

	for _, id := range []string{"nobody", "", "a.b", "x/y"} {
		user, err := validator.GetUserID(ctx, id)
		require.NoError(t, err, id)
		require.Nil(t, user, id)
	}

	pw, ok, err := validator.GetPassword(ctx, "nobody")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, pw)
}

func TestDecodesLegacyRecords(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, docstore.UserPath("legacy"), json.RawMessage(
		`{"Password":"pw","Admin":"ADMIN-1","enrolled_events":{"0":"3","1":"7"}}`)))

	user, err := NewValidator(db).GetUserID(ctx, "legacy")
	require.NoError(t, err)
	require.True(t, user.IsAdmin)
	require.Equal(t, []string{"3", "7"}, user.EnrolledEvents)
}

func TestAuthenticateUser(t *testing.T) {
	db := memory.New()
	store := NewStore(db)
	validator := NewValidator(db)
	ctx := context.Background()

	ok, err := validator.AuthenticateUser(ctx, "alice", "secret")
	require.NoError(t, err)
	require.False(t, ok, "absent user")

	require.NoError(t, store.InsertNewUser(ctx, "alice", "secret", false))

	for pw, want := range map[string]bool{"secret": true, "Secret": false, "secret ": false, "": false} {
		ok, err := validator.AuthenticateUser(ctx, "alice", pw)
		require.NoError(t, err)
		require.Equal(t, want, ok, "password %q", pw)
	}

	require.NoError(t, store.ChangePassword(ctx, "alice", "rotated"))
	ok, err = validator.AuthenticateUser(ctx, "alice", "secret")
	require.NoError(t, err)
	require.False(t, ok, "old credential must stop working")
	ok, err = validator.AuthenticateUser(ctx, "alice", "rotated")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAuthenticateAdminCode(t *testing.T) {
	db := memory.New()
	validator := NewValidator(db)
	ctx := context.Background()

	ok, err := validator.AuthenticateAdminCode(ctx, "anything")
	require.NoError(t, err)
	require.False(t, ok, "no codes stored")

	require.NoError(t, validator.AddAdminCode(ctx, "primary", "CHARITY-2024"))
	require.NoError(t, validator.AddAdminCode(ctx, "backup", "RESCUE"))

	for code, want := range map[string]bool{"CHARITY-2024": true, "RESCUE": true, "charity-2024": false, "": false, "primary": false} {
		ok, err := validator.AuthenticateAdminCode(ctx, code)
		require.NoError(t, err)
		require.Equal(t, want, ok, "code %q", code)
	}
}

func TestAuthenticateAdminCodeArrayLayout(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, docstore.P(docstore.AdminCodes), json.RawMessage(`[null,"A1","B2"]`)))

	ok, err := NewValidator(db).AuthenticateAdminCode(ctx, "B2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestChangeUserIDMovesRecordUnchanged(t *testing.T) {
	db := memory.New()
	store := NewStore(db)
	validator := NewValidator(db)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, docstore.UserPath("alice"), map[string]any{
		"Password":        "pw",
		"Admin":           true,
		"enrolled_events": []string{"1", "4"},
	}))

	require.NoError(t, store.ChangeUserID(ctx, "alice", "alicia"))

	gone, err := validator.GetUserID(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, gone)

	moved, err := validator.GetUserID(ctx, "alicia")
	require.NoError(t, err)
	require.NotEmpty(t, moved.Session)
	moved.Session = ""
	require.Equal(t, &User{ID: "alicia", Password: "pw", IsAdmin: true, EnrolledEvents: []string{"1", "4"}}, moved)
}

func TestChangeUserIDNoOps(t *testing.T) {
	db := memory.New()
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.ChangeUserID(ctx, "ghost", "someone"))
	raw, err := db.Get(ctx, docstore.UserPath("someone"))
	require.NoError(t, err)
	require.Nil(t, raw)

	require.NoError(t, store.InsertNewUser(ctx, "same", "pw", false))
	require.NoError(t, store.ChangeUserID(ctx, "same", "same"))
	raw, err = db.Get(ctx, docstore.UserPath("same"))
	require.NoError(t, err)
	require.NotNil(t, raw, "renaming to the same id keeps the record")
}

func TestChangeUserIDRemoveFailureLeavesBothRecords(t *testing.T) {
	inner := memory.New()
	ctx := context.Background()
	require.NoError(t, NewStore(inner).InsertNewUser(ctx, "alice", "pw", false))

	failing := &storetest.Failing{Store: inner, Fail: func(op string, _ docstore.Path) bool { return op == "remove" }}
	err := NewStore(failing).ChangeUserID(ctx, "alice", "alicia")
	require.ErrorIs(t, err, storetest.ErrInjected)

	validator := NewValidator(inner)
	for _, id := range []string{"alice", "alicia"} {
		user, err := validator.GetUserID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, user, id)
	}
}

func TestChangePasswordOnAbsentUser(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	err := NewStore(db).ChangePassword(ctx, "ghost", "pw")
	require.ErrorIs(t, err, ErrUserNotFound)

	raw, err := db.Get(ctx, docstore.UserPath("ghost"))
	require.NoError(t, err)
	require.Nil(t, raw, "no partial record is created")
}

func TestChangePasswordKeepsOtherFields(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, docstore.UserPath("alice"), map[string]any{
		"Password": "old", "Admin": true, "enrolled_events": []string{"2"},
	}))

	require.NoError(t, NewStore(db).ChangePassword(ctx, "alice", "new"))

	user, err := NewValidator(db).GetUserID(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, user.Session)
	user.Session = ""
	require.Equal(t, &User{ID: "alice", Password: "new", IsAdmin: true, EnrolledEvents: []string{"2"}}, user)
}

func TestRemoveAccountLeavesEventRoster(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	require.NoError(t, NewStore(db).InsertNewUser(ctx, "alice", "pw", false))
	require.NoError(t, db.Set(ctx, docstore.EventPath("1"), map[string]any{"name": "Run", "enrolled_users": []string{"alice"}}))

	require.NoError(t, NewStore(db).RemoveAccount(ctx, "alice"))

	user, err := NewValidator(db).GetUserID(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, user)

	roster, err := db.Get(ctx, docstore.EventPath("1").Child("enrolled_users"))
	require.NoError(t, err)
	require.JSONEq(t, `["alice"]`, string(roster))
}

func TestStoreFailuresPropagate(t *testing.T) {
	db := storetest.FailAll(memory.New())
	ctx := context.Background()
	store := NewStore(db)
	validator := NewValidator(db)

	var se *docstore.StoreError
	require.ErrorAs(t, store.InsertNewUser(ctx, "a", "pw", false), &se)
	require.ErrorAs(t, store.ChangeUserID(ctx, "a", "b"), &se)
	require.ErrorAs(t, store.ChangePassword(ctx, "a", "pw"), &se)
	require.ErrorAs(t, store.RemoveAccount(ctx, "a"), &se)

	_, err := validator.GetUserID(ctx, "a")
	require.ErrorAs(t, err, &se)
	_, _, err = validator.GetPassword(ctx, "a")
	require.ErrorAs(t, err, &se)
	_, err = validator.AuthenticateUser(ctx, "a", "pw")
	require.ErrorAs(t, err, &se)
	_, err = validator.AuthenticateAdminCode(ctx, "code")
	require.ErrorAs(t, err, &se)
}

func TestSignUp(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Validator().AddAdminCode(ctx, "main", "ADMIN42"))
	require.NoError(t, NewStore(db).InsertNewUser(ctx, "taken", "pw", false))

	tests := []struct {
		name   string
		params SignUpParams
		want   map[string]Code
	}{
		{
			name:   "injection in every field",
			params: SignUpParams{UserID: "bob'", Password: "a;b", AdminCode: "#x"},
			want:   map[string]Code{FieldUserID: CodeInjection, FieldPassword: CodeInjection, FieldAdminCode: CodeInjection},
		},
		{
			name:   "existing id",
			params: SignUpParams{UserID: "taken", Password: "pw"},
			want:   map[string]Code{FieldUserID: CodeExists},
		},
		{
			name:   "blank fields",
			params: SignUpParams{UserID: "   ", Password: ""},
			want:   map[string]Code{FieldUserID: CodeEmptyID, FieldPassword: CodeEmptyPassword},
		},
		{
			name:   "blank password",
			params: SignUpParams{UserID: "new", Password: " "},
			want:   map[string]Code{FieldPassword: CodeEmptyPassword},
		},
		{
			name:   "wrong admin code",
			params: SignUpParams{UserID: "new", Password: "pw", AdminCode: "nope"},
			want:   map[string]Code{FieldAdminCode: CodeAdminCode},
		},
		{
			name:   "id not usable as a key",
			params: SignUpParams{UserID: "a.b", Password: "pw"},
			want:   map[string]Code{FieldUserID: CodeInvalidID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.SignUp(ctx, tt.params)
			require.Nil(t, user)
			requireCodes(t, err, tt.want)
		})
	}

	raw, err := db.Get(ctx, docstore.UserPath("new"))
	require.NoError(t, err)
	require.Nil(t, raw, "rejected signups write nothing")
}

func TestSignUpCreatesAccounts(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Validator().AddAdminCode(ctx, "main", "ADMIN42"))

	member, err := svc.SignUp(ctx, SignUpParams{UserID: "alice", Password: "pw", AdminCode: "  "})
	require.NoError(t, err)
	require.False(t, member.IsAdmin)

	admin, err := svc.SignUp(ctx, SignUpParams{UserID: "root", Password: "pw", AdminCode: "ADMIN42"})
	require.NoError(t, err)
	require.True(t, admin.IsAdmin)

	stored, err := svc.Validator().GetUserID(ctx, "root")
	require.NoError(t, err)
	require.True(t, stored.IsAdmin)
}

func TestLogIn(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpParams{UserID: "alice", Password: "secret"})
	require.NoError(t, err)

	user, err := svc.LogIn(ctx, "alice", "secret")
	require.NoError(t, err)
	require.Equal(t, "alice", user.ID)

	_, err = svc.LogIn(ctx, "alice", "wrong")
	requireCodes(t, err, map[string]Code{FieldUserID: CodeCredentials})

	_, err = svc.LogIn(ctx, "nobody", "secret")
	requireCodes(t, err, map[string]Code{FieldUserID: CodeCredentials})

	_, err = svc.LogIn(ctx, "alice' --", "secret")
	requireCodes(t, err, map[string]Code{FieldUserID: CodeInjection})
}

func TestRename(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, id := range []string{"alice", "bob"} {
		_, err := svc.SignUp(ctx, SignUpParams{UserID: id, Password: "pw"})
		require.NoError(t, err)
	}

	requireCodes(t, svc.Rename(ctx, "alice", "al;ice"), map[string]Code{FieldUserID: CodeInjection})
	requireCodes(t, svc.Rename(ctx, "alice", "bob"), map[string]Code{FieldUserID: CodeExists})
	requireCodes(t, svc.Rename(ctx, "alice", " "), map[string]Code{FieldUserID: CodeEmptyID})
	require.ErrorIs(t, svc.Rename(ctx, "ghost", "spirit"), ErrUserNotFound)

	require.NoError(t, svc.Rename(ctx, "alice", "alicia"))
	_, err := svc.LogIn(ctx, "alicia", "pw")
	require.NoError(t, err)
}

func TestServiceChangePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpParams{UserID: "alice", Password: "pw"})
	require.NoError(t, err)

	requireCodes(t, svc.ChangePassword(ctx, "alice", "/*x*/"), map[string]Code{FieldPassword: CodeInjection})
	requireCodes(t, svc.ChangePassword(ctx, "alice", ""), map[string]Code{FieldPassword: CodeEmptyPassword})
	require.ErrorIs(t, svc.ChangePassword(ctx, "ghost", "pw2"), ErrUserNotFound)

	require.NoError(t, svc.ChangePassword(ctx, "alice", "pw2"))
	_, err = svc.LogIn(ctx, "alice", "pw2")
	require.NoError(t, err)
}

func TestServiceRemoveAccount(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpParams{UserID: "alice", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveAccount(ctx, "alice"))
	_, err = svc.LogIn(ctx, "alice", "pw")
	requireCodes(t, err, map[string]Code{FieldUserID: CodeCredentials})
}

func TestCodeMessages(t *testing.T) {
	require.Equal(t, "No injection symbols allowed", CodeInjection.Message())
	require.Equal(t, "User ID already exist", CodeExists.Message())
	require.Equal(t, "User ID must not be empty!", CodeEmptyID.Message())
	require.Equal(t, "Password must not be empty!", CodeEmptyPassword.Message())
	require.Equal(t, "Wrong admin code", CodeAdminCode.Message())
	require.Equal(t, "Wrong credentials", CodeCredentials.Message())
}

func TestSessionRotation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	validator := svc.Validator()

	created, err := svc.SignUp(ctx, SignUpParams{UserID: "alice", Password: "pw"})
	require.NoError(t, err)
	first := created.Session
	require.NotEmpty(t, first)

	user, err := svc.LogIn(ctx, "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, first, user.Session, "login keeps the current session")

	ok, err := validator.SessionValid(ctx, "alice", first)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.ChangePassword(ctx, "alice", "pw2"))
	ok, err = validator.SessionValid(ctx, "alice", first)
	require.NoError(t, err)
	require.False(t, ok, "password change ends the session")

	second, err := svc.Session(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, svc.Rename(ctx, "alice", "alicia"))
	third, err := svc.Session(ctx, "alicia")
	require.NoError(t, err)
	require.NotEqual(t, second, third, "rename issues a new session")
	ok, err = validator.SessionValid(ctx, "alice", second)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.RemoveAccount(ctx, "alicia"))
	_, err = svc.SignUp(ctx, SignUpParams{UserID: "alicia", Password: "other"})
	require.NoError(t, err)
	ok, err = validator.SessionValid(ctx, "alicia", third)
	require.NoError(t, err)
	require.False(t, ok, "a re-created account does not accept old sessions")

	ok, err = validator.SessionValid(ctx, "alicia", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoginGivesLegacyRecordsASession(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, docstore.UserPath("legacy"), map[string]any{"Password": "pw", "Admin": "code"}))

	user, err := svc.LogIn(ctx, "legacy", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, user.Session)
	require.True(t, user.IsAdmin)

	stored, err := svc.Validator().GetUserID(ctx, "legacy")
	require.NoError(t, err)
	require.Equal(t, user.Session, stored.Session)
}
