package auth

import (
	stderrors "errors"
	"fmt"
	"unicode"

	"github.com/go-playground/validator/v10"

	"chat-server/errors"
)

var validate = validator.New()

type RegisterRequest struct {
	Name     string `validate:"required,min=2,max=64"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"omitempty,e164"`
	Password string `validate:"required,min=12,max=72"`
}

// ValidateRegister checks the registration fields. Password failures map to
// ErrInvalidPassword, every other field failure to ErrInvalidRegistration,
// so the API can report the right problem.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				if fieldErr.Field() == "Password" {
					return fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
				}
			}
		}
		return fmt.Errorf("%w: %v", errors.ErrInvalidRegistration, err)
	}

	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)
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
