package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"rentdesk/pkg/logger"
	"rentdesk/pkg/model"

	"github.com/go-playground/validator/v10"
)

const (
	// DeliveryExtra is the extras key that makes the delivery block
	// mandatory on the booking form.
	DeliveryExtra = "kiszallitas"

	rentalDateLayout = "2006-01-02"
)

// BookingReferencePattern matches assigned references like "2025/0008".
// The suffix is kept loose on purpose: counters grow past four digits
// and imported legacy rows carry alphanumeric suffixes.
var BookingReferencePattern = regexp.MustCompile(`^[0-9]{4}/[0-9A-Za-z-]+$`)

// RecordIDPattern matches the 36-character UUID shape of record ids as
// submitted by the self-service manage form.
var RecordIDPattern = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

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

type RentRequestValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRentRequestValidator(log *logger.Logger) *RentRequestValidator {
	v := validator.New()

	if err := v.RegisterValidation("booking_reference", validateBookingReference); err != nil {
		log.Fatal("Failed to register 'booking_reference' validator", "error", err)
	}

	log.Info("Rent request validator initialized successfully")

	return &RentRequestValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingReference(fl validator.FieldLevel) bool {
	return BookingReferencePattern.MatchString(fl.Field().String())
}

// ValidateRecord checks the persisted shape of a booking record.
func (v *RentRequestValidator) ValidateRecord(record *model.RentRequest) error {
	if err := v.validate.Struct(record); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// ValidateForm checks a booking form submission before it is turned
// into a record. Rules that span fields (consents, delivery coupled to
// the extras list) live here because struct tags cannot express them.
func (v *RentRequestValidator) ValidateForm(values *model.RentFormValues) error {
	var errs ValidationErrors

	if strings.TrimSpace(values.Contact.Name) == "" {
		errs = append(errs, ValidationError{Field: "contact.name", Message: "contact name is required"})
	}
	if strings.TrimSpace(values.Contact.Email) == "" {
		errs = append(errs, ValidationError{Field: "contact.email", Message: "contact email is required"})
	}

	if len(values.Driver) == 0 {
		errs = append(errs, ValidationError{Field: "driver", Message: "at least one driver is required"})
	}

	start, startErr := time.Parse(rentalDateLayout, values.RentalPeriod.StartDate)
	if startErr != nil {
		errs = append(errs, ValidationError{Field: "rentalPeriod.startDate", Message: "start date must be YYYY-MM-DD"})
	}
	end, endErr := time.Parse(rentalDateLayout, values.RentalPeriod.EndDate)
	if endErr != nil {
		errs = append(errs, ValidationError{Field: "rentalPeriod.endDate", Message: "end date must be YYYY-MM-DD"})
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		errs = append(errs, ValidationError{Field: "rentalPeriod", Message: "end date must be after start date"})
	}

	if !values.Consents.Privacy {
		errs = append(errs, ValidationError{Field: "consents.privacy", Message: "privacy consent is required"})
	}
	if !values.Consents.Terms {
		errs = append(errs, ValidationError{Field: "consents.terms", Message: "terms consent is required"})
	}

	if hasExtra(values.Extras, DeliveryExtra) && values.Delivery == nil {
		errs = append(errs, ValidationError{Field: "delivery", Message: "delivery details are required when delivery is among the extras"})
	}

	if values.QuoteID != "" && !RecordIDPattern.MatchString(values.QuoteID) {
		errs = append(errs, ValidationError{Field: "quoteId", Message: "quote id must be a UUID"})
	}
	if values.RentID != "" && !RecordIDPattern.MatchString(values.RentID) {
		errs = append(errs, ValidationError{Field: "rentId", Message: "rent id must be a UUID"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func hasExtra(extras []string, key string) bool {
	for _, extra := range extras {
		if strings.EqualFold(strings.TrimSpace(extra), key) {
			return true
		}
	}
	return false
}

func (v *RentRequestValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
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
