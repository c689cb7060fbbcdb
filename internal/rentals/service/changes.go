package service

import (
	"strconv"
	"strings"
	"time"

	"rentdesk/pkg/model"
)

// FieldChange records one field's value before and after a self-service
// modification. Values are normalized scalars; nil means absent.
type FieldChange struct {
	Before *string `json:"before"`
	After  *string `json:"after"`
}

// ChangeMap maps field names to their changes, keyed the way the manage
// UI displays them.
type ChangeMap map[string]FieldChange

type snapshot map[string]*string

// summarizeChanges diffs two normalized snapshots over the union of
// their keys. Unchanged fields are omitted.
func summarizeChanges(previous, next snapshot) ChangeMap {
	changes := ChangeMap{}

	keys := map[string]struct{}{}
	for key := range previous {
		keys[key] = struct{}{}
	}
	for key := range next {
		keys[key] = struct{}{}
	}

	for key := range keys {
		before := previous[key]
		after := next[key]
		if equalValue(before, after) {
			continue
		}
		changes[key] = FieldChange{Before: before, After: after}
	}

	return changes
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// normalizeString trims and narrows blank strings to nil so "" and
// absent compare equal.
func normalizeString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeInt(value *int) *string {
	if value == nil {
		return nil
	}
	s := strconv.Itoa(*value)
	return &s
}

func normalizeDate(value time.Time) *string {
	if value.IsZero() {
		return nil
	}
	s := value.UTC().Format("2006-01-02")
	return &s
}

func recordSnapshot(record *model.RentRequest) snapshot {
	delivery := record.Delivery
	if delivery == nil {
		delivery = &model.DeliveryDetails{}
	}
	return snapshot{
		"locale":                  normalizeString(record.Locale),
		"carId":                   normalizeString(record.CarID),
		"quoteId":                 normalizeString(record.QuoteID),
		"contactName":             normalizeString(record.ContactName),
		"contactEmail":            normalizeString(record.ContactEmail),
		"contactPhone":            normalizeString(record.ContactPhone),
		"rentalStart":             normalizeDate(record.RentalStart),
		"rentalEnd":               normalizeDate(record.RentalEnd),
		"rentalDays":              normalizeInt(record.RentalDays),
		"deliveryPlaceType":       normalizeString(delivery.PlaceType),
		"deliveryLocationName":    normalizeString(delivery.LocationName),
		"deliveryArrivalFlight":   normalizeString(delivery.ArrivalFlight),
		"deliveryDepartureFlight": normalizeString(delivery.DepartureFlight),
		"deliveryArrivalHour":     normalizeString(delivery.ArrivalHour),
		"deliveryArrivalMinute":   normalizeString(delivery.ArrivalMinute),
	}
}

func formSnapshot(values *model.RentFormValues, locale string) snapshot {
	delivery := values.Delivery
	if delivery == nil {
		delivery = &model.Delivery{}
	}

	contactPhone := ""
	if len(values.Driver) > 0 {
		contactPhone = values.Driver[0].PhoneNumber
	}

	return snapshot{
		"locale":                  normalizeString(locale),
		"carId":                   normalizeString(values.CarID),
		"quoteId":                 normalizeString(values.QuoteID),
		"contactName":             normalizeString(values.Contact.Name),
		"contactEmail":            normalizeString(values.Contact.Email),
		"contactPhone":            normalizeString(contactPhone),
		"rentalStart":             normalizeString(values.RentalPeriod.StartDate),
		"rentalEnd":               normalizeString(values.RentalPeriod.EndDate),
		"rentalDays":              normalizeInt(values.RentalDays),
		"deliveryPlaceType":       normalizeString(delivery.PlaceType),
		"deliveryLocationName":    normalizeString(delivery.LocationName),
		"deliveryArrivalFlight":   normalizeString(delivery.ArrivalFlight),
		"deliveryDepartureFlight": normalizeString(delivery.DepartureFlight),
		"deliveryArrivalHour":     normalizeString(delivery.ArrivalHour),
		"deliveryArrivalMinute":   normalizeString(delivery.ArrivalMinute),
	}
}
