package model

import (
	"encoding/json"

	apperrors "rentdesk/pkg/errors"
)

// CompactPayloadVersion tags the reduced persisted payload shape.
const CompactPayloadVersion = 2

// ErrUnrecognizedPayload rejects stored or submitted payloads matching
// neither the legacy full-form shape nor the compact v2 shape.
var ErrUnrecognizedPayload = apperrors.InvalidInput("unrecognized booking payload shape")

// CompactRentPayload is the reduced persisted representation of a booking
// form: only the fields that cannot be derived from the record's own
// columns are kept.
type CompactRentPayload struct {
	V               int      `json:"v" bson:"v"`
	Adults          *int     `json:"adults" bson:"adults"`
	Children        []Child  `json:"children" bson:"children"`
	Extras          []string `json:"extras" bson:"extras"`
	Driver          []Driver `json:"driver" bson:"driver"`
	Invoice         Invoice  `json:"invoice" bson:"invoice"`
	Tax             Tax      `json:"tax" bson:"tax"`
	Consents        Consents `json:"consents" bson:"consents"`
	DeliveryAddress *Address `json:"deliveryAddress" bson:"deliveryAddress"`
}

// RentPayload is the result of classifying a stored payload. Exactly one
// of Legacy or Compact is set.
type RentPayload struct {
	Legacy  *RentFormValues
	Compact *CompactRentPayload
}

// IsLegacyRentPayload reports whether the object carries the four keys
// that discriminate the original full-form shape.
func IsLegacyRentPayload(fields map[string]json.RawMessage) bool {
	_, hasContact := fields["contact"]
	_, hasDriver := fields["driver"]
	_, hasPeriod := fields["rentalPeriod"]
	_, hasInvoice := fields["invoice"]
	return hasContact && hasDriver && hasPeriod && hasInvoice
}

// IsCompactRentPayload reports whether the object carries the v2 version tag.
func IsCompactRentPayload(fields map[string]json.RawMessage) bool {
	raw, ok := fields["v"]
	if !ok {
		return false
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v == CompactPayloadVersion
}

// ParseRentPayload classifies a raw payload into one of the two known
// shapes. Legacy detection runs first; a payload matching neither shape
// is rejected rather than coerced.
func ParseRentPayload(raw json.RawMessage) (*RentPayload, error) {
	if len(raw) == 0 {
		return nil, ErrUnrecognizedPayload
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, ErrUnrecognizedPayload
	}

	if IsLegacyRentPayload(fields) {
		var legacy RentFormValues
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "malformed legacy booking payload", 400)
		}
		return &RentPayload{Legacy: &legacy}, nil
	}

	if IsCompactRentPayload(fields) {
		var compact CompactRentPayload
		if err := json.Unmarshal(raw, &compact); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "malformed compact booking payload", 400)
		}
		return &RentPayload{Compact: &compact}, nil
	}

	return nil, ErrUnrecognizedPayload
}

// BuildCompactRentPayload produces the minimal persisted representation of
// a form submission. List fields default to empty slices and the adults
// count narrows to null when the form did not submit a number. The
// function is idempotent across repeated saves.
func BuildCompactRentPayload(values RentFormValues) CompactRentPayload {
	payload := CompactRentPayload{
		V:        CompactPayloadVersion,
		Adults:   values.Adults.Ptr(),
		Children: values.Children,
		Extras:   values.Extras,
		Driver:   values.Driver,
		Invoice:  values.Invoice,
		Tax:      values.Tax,
		Consents: values.Consents,
	}

	if payload.Children == nil {
		payload.Children = []Child{}
	}
	if payload.Extras == nil {
		payload.Extras = []string{}
	}
	if payload.Driver == nil {
		payload.Driver = []Driver{}
	}

	if values.Delivery != nil && values.Delivery.Address != nil {
		payload.DeliveryAddress = values.Delivery.Address
	}

	return payload
}

// FormValues rebuilds the booking form from whichever shape was stored.
func (p *RentPayload) FormValues() RentFormValues {
	if p.Legacy != nil {
		return *p.Legacy
	}
	if p.Compact != nil {
		return p.Compact.FormValues()
	}
	return RentFormValues{}
}

// FormValues maps a compact payload back into the full-form model, used
// to prefill the edit form and to re-compact on save.
func (p CompactRentPayload) FormValues() RentFormValues {
	values := RentFormValues{
		Extras:   p.Extras,
		Adults:   FlexIntFrom(p.Adults),
		Children: p.Children,
		Driver:   p.Driver,
		Invoice:  p.Invoice,
		Tax:      p.Tax,
		Consents: p.Consents,
	}

	if p.DeliveryAddress != nil {
		values.Delivery = &Delivery{Address: p.DeliveryAddress}
	}

	return values
}
