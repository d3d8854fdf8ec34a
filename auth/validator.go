package auth

import (
	stderrors "errors"
	"fmt"
	"unicode"

	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRequest carries the credentials a new account is created with.
// Usernames double as chat display names, so they are kept short and plain.
type RegisterRequest struct {
	Username string `validate:"required,alphanum,min=3,max=32"`
	Password string `validate:"required,min=12,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if stderrors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			if fieldErrors[0].Field() == "Username" {
				return fmt.Errorf("%w: failed %q rule", errors.ErrInvalidUsername, fieldErrors[0].Tag())
			}
			return fmt.Errorf("%w: failed %q rule", errors.ErrInvalidPassword, fieldErrors[0].Tag())
		}
		return err
	}
	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

// isPasswordComplex requires at least one upper, lower, digit and special rune.
func isPasswordComplex(s string) bool {
	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	return hasUpper && hasLower && hasNumber && hasSpecial
}
