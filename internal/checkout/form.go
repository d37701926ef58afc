package checkout

import (
	stderrors "errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/avalogan/silkstrands-backend/internal/payments"
	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/types"
)

// Method selects the payment rail for a checkout attempt. Exactly one is
// chosen per attempt.
type Method string

const (
	MethodCard   Method = "card"
	MethodPayPal Method = "paypal"
)

// Form is the customer-facing checkout form. Validation runs before any
// provider is contacted; an invalid form never costs a network call.
type Form struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zip       string `json:"zip" validate:"required"`
	Country   string `json:"country"`
	Method    Method `json:"payment_method" validate:"required,oneof=card paypal"`
}

// Normalize trims whitespace and applies defaults. Country defaults to US,
// matching the storefront's shipping region.
func (f *Form) Normalize() {
	f.Email = strings.TrimSpace(strings.ToLower(f.Email))
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.Zip = strings.TrimSpace(f.Zip)
	f.Country = strings.TrimSpace(f.Country)
	if f.Country == "" {
		f.Country = "US"
	}
}

// NewValidator returns a validator reporting json tag names in errors.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate checks the form and returns a validation error carrying
// per-field messages, or nil.
func Validate(validate *validator.Validate, form *Form) error {
	form.Normalize()
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	details := map[string]any{}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fieldName(fe)] = fieldMessage(fe)
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "checkout form is invalid").WithDetails(details)
}

// FullName joins the customer's name parts.
func (f *Form) FullName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// Customer converts the form into the payment-facing customer.
func (f *Form) Customer() payments.Customer {
	return payments.Customer{
		Email: f.Email,
		Name:  f.FullName(),
		Phone: f.Phone,
	}
}

// Shipping converts the form into the payment-facing shipping block.
func (f *Form) Shipping() payments.Shipping {
	return payments.Shipping{
		Name: f.FullName(),
		Address: types.Address{
			Line1:      f.Address,
			City:       f.City,
			State:      f.State,
			PostalCode: f.Zip,
			Country:    f.Country,
		},
	}
}

func fieldName(fe validator.FieldError) string {
	// The struct registers json tag names with the validator, so Field()
	// already returns the wire name.
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
