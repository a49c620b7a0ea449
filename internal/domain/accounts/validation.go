package accounts

import (
	"strings"
)

// Code identifies why an input was rejected.
type Code string

const (
	CodeInjection     Code = "injection"
	CodeExists        Code = "exists"
	CodeEmptyID       Code = "empty_id"
	CodeEmptyPassword Code = "empty_password"
	CodeAdminCode     Code = "admin_code"
	CodeCredentials   Code = "credentials"
	CodeInvalidID     Code = "invalid_id"
)

var messages = map[Code]string{
	CodeInjection:     "No injection symbols allowed",
	CodeExists:        "User ID already exist",
	CodeEmptyID:       "User ID must not be empty!",
	CodeEmptyPassword: "Password must not be empty!",
	CodeAdminCode:     "Wrong admin code",
	CodeCredentials:   "Wrong credentials",
	CodeInvalidID:     "User ID must not contain . $ [ ] or /",
}

// Message is the text shown to the person who entered the value.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return string(c)
}

// Input fields named in validation errors.
const (
	FieldUserID    = "user_id"
	FieldPassword  = "password"
	FieldAdminCode = "admin_code"
)

// ValidationError reports one rejected field.
type ValidationError struct {
	Field string
	Code  Code
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Code.Message()
}

// ValidationErrors holds at most one error per field, in field order.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Field returns the error recorded for field, if any.
func (v ValidationErrors) Field(field string) (ValidationError, bool) {
	for _, e := range v {
		if e.Field == field {
			return e, true
		}
	}
	return ValidationError{}, false
}

// checks collects field errors where a later check on the same field
// replaces an earlier one.
type checks struct {
	order []string
	byKey map[string]Code
}

func (c *checks) fail(field string, code Code) {
	if c.byKey == nil {
		c.byKey = make(map[string]Code)
	}
	if _, seen := c.byKey[field]; !seen {
		c.order = append(c.order, field)
	}
	c.byKey[field] = code
}

func (c *checks) err() error {
	if len(c.order) == 0 {
		return nil
	}
	out := make(ValidationErrors, 0, len(c.order))
	for _, f := range c.order {
		out = append(out, ValidationError{Field: f, Code: c.byKey[f]})
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
