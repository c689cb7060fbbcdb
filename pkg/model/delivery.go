package model

import (
	"strings"

	"rentdesk/pkg/sanitizer"
)

// DeliveryDetails are the normalized delivery fields embedded on a rent
// request document. The address is flattened to a single display line.
type DeliveryDetails struct {
	PlaceType       string `json:"place_type,omitempty" bson:"place_type,omitempty"`
	LocationName    string `json:"location_name,omitempty" bson:"location_name,omitempty"`
	AddressLine     string `json:"address_line,omitempty" bson:"address_line,omitempty"`
	ArrivalFlight   string `json:"arrival_flight,omitempty" bson:"arrival_flight,omitempty"`
	DepartureFlight string `json:"departure_flight,omitempty" bson:"departure_flight,omitempty"`
	ArrivalHour     string `json:"arrival_hour,omitempty" bson:"arrival_hour,omitempty"`
	ArrivalMinute   string `json:"arrival_minute,omitempty" bson:"arrival_minute,omitempty"`
}

// FormatDeliveryAddressLine joins the non-blank address segments into
// one comma-separated line, or returns "" when every segment is blank.
func FormatDeliveryAddressLine(address *Address) string {
	if address == nil {
		return ""
	}

	segments := []string{
		address.Country,
		address.PostalCode,
		address.City,
		address.Street,
		address.DoorNumber,
	}

	var normalized []string
	for _, segment := range segments {
		if s := sanitizer.NormalizeAddressLine(segment); s != "" {
			normalized = append(normalized, s)
		}
	}
	return strings.Join(normalized, ", ")
}

// BuildDeliveryDetails normalizes the form's delivery block, or returns
// nil when the form requested no delivery at all.
func BuildDeliveryDetails(delivery *Delivery) *DeliveryDetails {
	if delivery == nil {
		return nil
	}

	details := &DeliveryDetails{
		PlaceType:       strings.TrimSpace(delivery.PlaceType),
		LocationName:    strings.TrimSpace(delivery.LocationName),
		AddressLine:     FormatDeliveryAddressLine(delivery.Address),
		ArrivalFlight:   strings.TrimSpace(delivery.ArrivalFlight),
		DepartureFlight: strings.TrimSpace(delivery.DepartureFlight),
		ArrivalHour:     strings.TrimSpace(delivery.ArrivalHour),
		ArrivalMinute:   strings.TrimSpace(delivery.ArrivalMinute),
	}

	if *details == (DeliveryDetails{}) {
		return nil
	}
	return details
}
