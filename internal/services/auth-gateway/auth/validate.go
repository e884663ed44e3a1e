package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type anonymousRequest struct {
	Currency string `json:"currency"`
}

func (r anonymousRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Currency, validation.In("GBP", "USD")),
	)
}

type signUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Currency  string `json:"currency"`
}

func (r signUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Currency, validation.In("GBP", "USD")),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 128)),
	)
}
