package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"rentdesk/pkg/logger"
	"rentdesk/pkg/model"

	"github.com/go-playground/validator/v10"
)

// bookingReferencePattern matches assigned references like "2025/0008".
// The suffix is kept loose on purpose: counters grow past four digits
// and imported legacy rows carry alphanumeric suffixes.
var bookingReferencePattern = regexp.MustCompile(`^[0-9]{4}/[0-9A-Za-z-]+$`)

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

type ContactQuoteValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewContactQuoteValidator(log *logger.Logger) *ContactQuoteValidator {
	v := validator.New()

	if err := v.RegisterValidation("booking_reference", validateBookingReference); err != nil {
		log.Fatal("Failed to register 'booking_reference' validator", "error", err)
	}

	log.Info("Contact quote validator initialized successfully")

	return &ContactQuoteValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingReference(fl validator.FieldLevel) bool {
	return bookingReferencePattern.MatchString(fl.Field().String())
}

func (v *ContactQuoteValidator) Validate(q *model.ContactQuote) error {
	if err := v.validate.Struct(q); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ContactQuoteValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be a phone number in international format", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "uuid4":
			message = fmt.Sprintf("%s must be a UUID", err.Field())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "booking_reference":
			message = fmt.Sprintf("%s must look like YYYY/NNNN", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
