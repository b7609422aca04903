package auth

import "fmt"

type (
	// InvalidCredentials does not say whether the user exists
	InvalidCredentials struct{}

	AccountBlocked struct {
		Username string
	}

	Unauthenticated struct{}

	Forbidden struct {
		Action Action
	}

	// IdentityNotFound means the session points to a user that no longer exists
	IdentityNotFound struct {
		UserID int64
	}
)

func (InvalidCredentials) Error() string {
	return "invalid credentials"
}

func (a AccountBlocked) Error() string {
	if a.Username == "" {
		return "account is blocked"
	}
	return fmt.Sprintf("account %v is blocked", a.Username)
}

func (Unauthenticated) Error() string {
	return "authentication required"
}

func (f Forbidden) Error() string {
	return fmt.Sprintf("not allowed to %v", f.Action)
}

func (i IdentityNotFound) Error() string {
	return fmt.Sprintf("identity %v not found", i.UserID)
}
