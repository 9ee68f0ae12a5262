package validator

import (
	"errors"
	"fmt"
	"regexp"
	"stayledger/pkg/logger"
	"stayledger/pkg/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	accountIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,63}$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// BookingValidator checks settlement requests before the engine takes the
// property lock. Range shape (check-in before checkout) is deliberately
// left to the engine, which owns the INVALID_RANGE failure.
type BookingValidator struct {
	validate    *validator.Validate
	logger      *logger.Logger
	horizonDays uint64
}

func NewBookingValidator(log *logger.Logger, horizonDays uint64) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("accountid", validateAccountID); err != nil {
		log.Fatal("Failed to register 'accountid' validator",
			"error", err,
		)
	}

	return &BookingValidator{
		validate:    v,
		logger:      log,
		horizonDays: horizonDays,
	}
}

func validateAccountID(fl validator.FieldLevel) bool {
	return accountIDRegex.MatchString(fl.Field().String())
}

func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if *req.Checkout > v.horizonDays {
		return ValidationErrors{
			ValidationError{
				Field:   "Checkout",
				Message: fmt.Sprintf("checkout day %d exceeds the booking horizon of %d days", *req.Checkout, v.horizonDays),
			},
		}
	}

	return nil
}

// ValidateAccount checks a caller-supplied account identity after
// sanitization.
func (v *BookingValidator) ValidateAccount(account model.AccountID) error {
	if err := v.validate.Var(string(account), "required,accountid"); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return ValidationErrors{
				ValidationError{
					Field:   "AccountID",
					Message: "account id must be 1-64 characters of letters, digits, '.', '_', '@' or '-', starting with a letter or digit",
				},
			}
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "accountid":
			message = fmt.Sprintf("%s must be a valid account id", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
