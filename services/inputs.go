package services

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/avennor/sluice/core"
)

// Inputs are validated server-side even when a client already did, since
// the endpoints are fundamentally an API surface. Validate returns the
// first violated field's message as a core.ValidationError.

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *RegisterInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)

	if len(in.Username) < 4 {
		return &core.ValidationError{Field: "username", Message: "Your username must be at least 4 characters."}
	}
	if len(in.Username) > 15 {
		return &core.ValidationError{Field: "username", Message: "Your username cannot exceed 15 characters."}
	}
	if !usernamePattern.MatchString(in.Username) {
		return &core.ValidationError{Field: "username", Message: "Your username can only contain letters, numbers, and underscores."}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email != strings.TrimSpace(in.Email) {
		return &core.ValidationError{Field: "email", Message: "Please enter a valid email address."}
	}
	if len(in.Password) < 6 {
		return &core.ValidationError{Field: "password", Message: "Your password must be at least 6 characters."}
	}
	if len(in.Password) > 255 {
		return &core.ValidationError{Field: "password", Message: "Your password cannot exceed 255 characters."}
	}
	return nil
}

// LoginInput carries the fields of a login request. Identifier may be a
// username or an email address.
type LoginInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (in *LoginInput) Validate() error {
	if in.Identifier == "" {
		return &core.ValidationError{Field: "identifier", Message: "Please enter a valid username or email."}
	}
	if in.Password == "" {
		return &core.ValidationError{Field: "password", Message: "Please enter a valid password."}
	}
	return nil
}

// VerifyInput carries a submitted verification code.
type VerifyInput struct {
	Code string `json:"code"`
}

func (in *VerifyInput) Validate() error {
	in.Code = strings.TrimSpace(in.Code)
	if len(in.Code) != 6 {
		return &core.ValidationError{Field: "code", Message: "Please enter the verification code sent to your email."}
	}
	return nil
}

// NormalizedCode returns the submitted code in the canonical uppercase
// form; codes are case-insensitive on entry.
func (in *VerifyInput) NormalizedCode() string {
	return strings.ToUpper(strings.TrimSpace(in.Code))
}
