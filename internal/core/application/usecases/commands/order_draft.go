package commands

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"orderflow/internal/pkg/errs"

	"github.com/go-playground/validator/v10"
)

// OrderDraft is a parsed candidate order that has not passed business validation yet.
type OrderDraft struct {
	OrderNumber string `json:"order_number" validate:"required,max=50"`
	Customer    string `json:"customer" validate:"required,max=255"`
	Product     string `json:"product" validate:"required,max=255"`
	Quantity    int    `json:"quantity" validate:"gte=1"`
}

// DraftValidator checks drafts against their struct tags and reports failures
// with the errs taxonomy, naming fields by their JSON names.
type DraftValidator struct {
	v *validator.Validate
}

func NewDraftValidator() DraftValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return DraftValidator{v: v}
}

// Validate returns nil or the joined field errors of draft.
func (d DraftValidator) Validate(draft OrderDraft) error {
	err := d.v.Struct(draft)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewValueIsInvalidErrorWithCause("order draft", err)
	}

	joined := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		joined = append(joined, toDomainError(fe))
	}
	return errors.Join(joined...)
}

func toDomainError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return errs.NewValueIsRequiredError(fe.Field())
	case "max":
		if s, ok := fe.Value().(string); ok {
			return errs.NewValueIsOutOfRangeError(fe.Field()+" length", utf8.RuneCountInString(s), 1, fe.Param())
		}
		return errs.NewValueIsOutOfRangeError(fe.Field(), fe.Value(), "unbounded", fe.Param())
	case "gte":
		return errs.NewValueIsOutOfRangeError(fe.Field(), fe.Value(), fe.Param(), "unbounded")
	default:
		return errs.NewValueIsInvalidError(fe.Field())
	}
}
