package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MaxUsername = 64
	MinPassword = 8
	// MaxPassword is the longest input bcrypt accepts
	MaxPassword = 72
)

type (
	// Registration is the data needed to create an account, both the
	// api and the command line go through Validate
	Registration struct {
		Username string
		Email    string
		Password string
	}

	InvalidRegistration struct {
		Field  string
		Reason string
	}
)

func (i InvalidRegistration) Error() string {
	return fmt.Sprintf("invalid %v: %v", i.Field, i.Reason)
}

// Validate trims username and email in place and checks every field
func (r *Registration) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	switch {
	case r.Username == "":
		return InvalidRegistration{Field: "username", Reason: "required"}
	case utf8.RuneCountInString(r.Username) > MaxUsername:
		return InvalidRegistration{Field: "username", Reason: "too long"}
	case r.Email == "":
		return InvalidRegistration{Field: "email", Reason: "required"}
	case len(r.Password) < MinPassword:
		return InvalidRegistration{Field: "password", Reason: "too short"}
	case len(r.Password) > MaxPassword:
		return InvalidRegistration{Field: "password", Reason: "too long"}
	}
	addr, err := mail.ParseAddress(r.Email)
	if err != nil || addr.Address != r.Email {
		return InvalidRegistration{Field: "email", Reason: "not a valid address"}
	}
	return nil
}
