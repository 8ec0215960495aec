// Package validator wraps go-playground struct validation for the
// platform layer.
package validator

import "github.com/go-playground/validator/v10"

// Validator validates tagged structs. Injected rather than used as a
// package singleton so callers can register extra rules in isolation.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New()}
}

// Struct checks every `validate` tag on s.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var checks a single value against a tag expression.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation adds a custom rule under the given tag name.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}
