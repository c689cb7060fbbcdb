package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt accepts a JSON number or numeric string and narrows anything
// else to null. Booking forms historically submitted the adults count as
// either type, so decoding must not fail on the string variant.
type FlexInt struct {
	Value int
	Valid bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value = n
		f.Valid = true
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, convErr := strconv.Atoi(strings.TrimSpace(s)); convErr == nil {
			f.Value = n
			f.Valid = true
			return nil
		}
	}

	f.Value = 0
	f.Valid = false
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Ptr returns the value as a nullable pointer.
func (f FlexInt) Ptr() *int {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// FlexIntFrom builds a valid FlexInt from a nullable pointer.
func FlexIntFrom(v *int) FlexInt {
	if v == nil {
		return FlexInt{}
	}
	return FlexInt{Value: *v, Valid: true}
}

// Address is a postal address as collected by the booking form.
type Address struct {
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	DoorNumber string `json:"doorNumber,omitempty" bson:"doorNumber,omitempty"`
}

// Child describes a child passenger; age and height drive seat selection.
type Child struct {
	Age    *int     `json:"age,omitempty" bson:"age,omitempty"`
	Height *float64 `json:"height,omitempty" bson:"height,omitempty"`
}

// DriverDocument holds the identity and licence documents of one driver.
type DriverDocument struct {
	Type                       string `json:"type" bson:"type"`
	Number                     string `json:"number" bson:"number"`
	ValidFrom                  string `json:"validFrom" bson:"validFrom"`
	ValidUntil                 string `json:"validUntil" bson:"validUntil"`
	DrivingLicenceNumber       string `json:"drivingLicenceNumber" bson:"drivingLicenceNumber"`
	DrivingLicenceValidFrom    string `json:"drivingLicenceValidFrom" bson:"drivingLicenceValidFrom"`
	DrivingLicenceValidUntil   string `json:"drivingLicenceValidUntil" bson:"drivingLicenceValidUntil"`
	DrivingLicenceIsOlderThan3 bool   `json:"drivingLicenceIsOlderThan_3" bson:"drivingLicenceIsOlderThan_3"`
	DrivingLicenceCategory     string `json:"drivingLicenceCategory" bson:"drivingLicenceCategory"`
}

type Driver struct {
	FirstName1   string         `json:"firstName_1" bson:"firstName_1"`
	FirstName2   string         `json:"firstName_2,omitempty" bson:"firstName_2,omitempty"`
	LastName1    string         `json:"lastName_1" bson:"lastName_1"`
	LastName2    string         `json:"lastName_2,omitempty" bson:"lastName_2,omitempty"`
	Location     Address        `json:"location" bson:"location"`
	DateOfBirth  string         `json:"dateOfBirth" bson:"dateOfBirth"`
	PlaceOfBirth string         `json:"placeOfBirth" bson:"placeOfBirth"`
	NameOfMother string         `json:"nameOfMother,omitempty" bson:"nameOfMother,omitempty"`
	PhoneNumber  string         `json:"phoneNumber" bson:"phoneNumber"`
	Email        string         `json:"email" bson:"email"`
	Document     DriverDocument `json:"document" bson:"document"`
}

type Contact struct {
	Same  bool   `json:"same" bson:"same"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}

type Invoice struct {
	Same        bool    `json:"same" bson:"same"`
	Name        string  `json:"name" bson:"name"`
	PhoneNumber string  `json:"phoneNumber" bson:"phoneNumber"`
	Email       string  `json:"email" bson:"email"`
	Location    Address `json:"location" bson:"location"`
}

type Tax struct {
	ID          string `json:"id,omitempty" bson:"id,omitempty"`
	CompanyName string `json:"companyName,omitempty" bson:"companyName,omitempty"`
}

type Consents struct {
	Privacy   bool `json:"privacy" bson:"privacy"`
	Terms     bool `json:"terms" bson:"terms"`
	Insurance bool `json:"insurance,omitempty" bson:"insurance,omitempty"`
}

type RentalPeriod struct {
	StartDate string `json:"startDate" bson:"startDate"`
	EndDate   string `json:"endDate" bson:"endDate"`
}

// Delivery holds the optional car delivery request: where the car should
// be brought instead of office pickup.
type Delivery struct {
	PlaceType       string   `json:"placeType,omitempty" bson:"placeType,omitempty"`
	LocationName    string   `json:"locationName,omitempty" bson:"locationName,omitempty"`
	Address         *Address `json:"address,omitempty" bson:"address,omitempty"`
	ArrivalFlight   string   `json:"arrivalFlight,omitempty" bson:"arrivalFlight,omitempty"`
	DepartureFlight string   `json:"departureFlight,omitempty" bson:"departureFlight,omitempty"`
	ArrivalHour     string   `json:"arrivalHour,omitempty" bson:"arrivalHour,omitempty"`
	ArrivalMinute   string   `json:"arrivalMinute,omitempty" bson:"arrivalMinute,omitempty"`
}

// RentFormValues is the full booking form submission. RentID is set only
// on self-service modifications and identifies the record to rewrite.
type RentFormValues struct {
	RentID       string       `json:"rentId,omitempty" bson:"rentId,omitempty"`
	CarID        string       `json:"carId,omitempty" bson:"carId,omitempty"`
	QuoteID      string       `json:"quoteId,omitempty" bson:"quoteId,omitempty"`
	Offer        *int         `json:"offer,omitempty" bson:"offer,omitempty"`
	Locale       string       `json:"locale,omitempty" bson:"locale,omitempty"`
	RentalDays   *int         `json:"rentalDays,omitempty" bson:"rentalDays,omitempty"`
	Extras       []string     `json:"extras,omitempty" bson:"extras,omitempty"`
	RentalPeriod RentalPeriod `json:"rentalPeriod" bson:"rentalPeriod"`
	Adults       FlexInt      `json:"adults" bson:"adults"`
	Children     []Child      `json:"children,omitempty" bson:"children,omitempty"`
	Driver       []Driver     `json:"driver" bson:"driver"`
	Contact      Contact      `json:"contact" bson:"contact"`
	Invoice      Invoice      `json:"invoice" bson:"invoice"`
	Delivery     *Delivery    `json:"delivery,omitempty" bson:"delivery,omitempty"`
	Tax          Tax          `json:"tax" bson:"tax"`
	Consents     Consents     `json:"consents" bson:"consents"`
}
