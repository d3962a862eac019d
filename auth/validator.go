package auth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateClaims(claims *Claims) error {
	return validate.Struct(claims)
}
