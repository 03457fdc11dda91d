// Package validator checks the shape of incoming user payloads before they
// reach the service layer.
package validator

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"userapi/internal/model"
)

const (
	MsgUsername = "Username is required and must be at least one character"
	MsgPassword = "Password is required and must be at least six characters"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps struct field names to the message reported for any rule failure on them.
var fieldMessages = map[string]string{
	"Username": MsgUsername,
	"Password": MsgPassword,
}

// ValidateCreate checks a create or update payload. It returns nil when the payload is valid.
func ValidateCreate(req model.CreateUserRequest) []string {
	return check(req)
}

// ValidateLogin checks a login payload. It returns nil when the payload is valid.
func ValidateLogin(req model.LoginRequest) []string {
	return check(req)
}

func check(payload any) []string {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	var msgs []string
	seen := make(map[string]bool)
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.StructField()]
		if !ok {
			msg = fe.Error()
		}
		if seen[msg] {
			continue
		}
		seen[msg] = true
		msgs = append(msgs, msg)
	}
	return msgs
}
