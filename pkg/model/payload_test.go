package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	apperrors "rentdesk/pkg/errors"
)

const legacyPayloadJSON = `{
	"contact": {"same": false, "name": "Kovacs Istvan", "email": "kovacs@example.com"},
	"driver": [{
		"firstName_1": "Istvan",
		"lastName_1": "Kovacs",
		"location": {"country": "Hungary", "postalCode": "1051", "city": "Budapest", "street": "Vaci ut", "doorNumber": "12"},
		"dateOfBirth": "1990-04-12",
		"placeOfBirth": "Budapest",
		"phoneNumber": "+36301234567",
		"email": "kovacs@example.com",
		"document": {
			"type": "id_card",
			"number": "123456AB",
			"validFrom": "2020-01-01",
			"validUntil": "2030-01-01",
			"drivingLicenceNumber": "DL-9988",
			"drivingLicenceValidFrom": "2010-05-01",
			"drivingLicenceValidUntil": "2030-05-01",
			"drivingLicenceIsOlderThan_3": true,
			"drivingLicenceCategory": "B"
		}
	}],
	"rentalPeriod": {"startDate": "2026-09-10", "endDate": "2026-09-17"},
	"invoice": {"same": true, "name": "Kovacs Istvan", "phoneNumber": "+36301234567", "email": "kovacs@example.com", "location": {"country": "Hungary", "postalCode": "1051", "city": "Budapest", "street": "Vaci ut", "doorNumber": "12"}},
	"adults": 2,
	"extras": ["gps"],
	"tax": {},
	"consents": {"privacy": true, "terms": true}
}`

func TestParseRentPayload_Classification(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantLegacy  bool
		wantCompact bool
		wantErr     bool
	}{
		{
			name:       "legacy shape with all four discriminator keys",
			raw:        legacyPayloadJSON,
			wantLegacy: true,
		},
		{
			name:        "compact shape with version tag",
			raw:         `{"v": 2, "adults": 2, "children": [], "extras": [], "driver": [], "invoice": {}, "tax": {}, "consents": {"privacy": true, "terms": true}, "deliveryAddress": null}`,
			wantCompact: true,
		},
		{
			name:    "missing one discriminator key is not legacy",
			raw:     `{"contact": {}, "driver": [], "rentalPeriod": {}}`,
			wantErr: true,
		},
		{
			name:    "wrong version tag is not compact",
			raw:     `{"v": 3, "adults": 1}`,
			wantErr: true,
		},
		{
			name:    "non-numeric version tag is not compact",
			raw:     `{"v": "2"}`,
			wantErr: true,
		},
		{
			name:    "array is not a payload",
			raw:     `[1, 2, 3]`,
			wantErr: true,
		},
		{
			name:    "empty input",
			raw:     ``,
			wantErr: true,
		},
		{
			name:    "unparseable input",
			raw:     `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseRentPayload(json.RawMessage(tt.raw))

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", parsed)
				}
				if !apperrors.IsAppError(err) {
					t.Errorf("expected an AppError, got %T", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantLegacy && parsed.Legacy == nil {
				t.Error("expected legacy payload")
			}
			if tt.wantLegacy && parsed.Compact != nil {
				t.Error("legacy payload must not also classify as compact")
			}
			if tt.wantCompact && parsed.Compact == nil {
				t.Error("expected compact payload")
			}
			if tt.wantCompact && parsed.Legacy != nil {
				t.Error("compact payload must not also classify as legacy")
			}
		})
	}
}

func TestParseRentPayload_LegacyWinsOverVersionTag(t *testing.T) {
	// A legacy payload that happens to carry a v field still classifies
	// as legacy: discrimination order is legacy first.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(legacyPayloadJSON), &fields); err != nil {
		t.Fatal(err)
	}
	fields["v"] = json.RawMessage(`2`)
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseRentPayload(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Legacy == nil || parsed.Compact != nil {
		t.Errorf("expected legacy classification, got %+v", parsed)
	}
}

func TestBuildCompactRentPayload_Defaults(t *testing.T) {
	values := RentFormValues{
		Adults:   FlexInt{},
		Invoice:  Invoice{Name: "Kovacs Istvan"},
		Consents: Consents{Privacy: true, Terms: true},
	}

	payload := BuildCompactRentPayload(values)

	if payload.V != CompactPayloadVersion {
		t.Errorf("V = %d, want %d", payload.V, CompactPayloadVersion)
	}
	if payload.Adults != nil {
		t.Errorf("Adults = %v, want nil for non-numeric input", *payload.Adults)
	}
	if payload.Children == nil || len(payload.Children) != 0 {
		t.Errorf("Children = %v, want empty slice", payload.Children)
	}
	if payload.Extras == nil || len(payload.Extras) != 0 {
		t.Errorf("Extras = %v, want empty slice", payload.Extras)
	}
	if payload.Driver == nil || len(payload.Driver) != 0 {
		t.Errorf("Driver = %v, want empty slice", payload.Driver)
	}
	if payload.DeliveryAddress != nil {
		t.Errorf("DeliveryAddress = %+v, want nil without a delivery block", payload.DeliveryAddress)
	}
}

func TestBuildCompactRentPayload_Idempotent(t *testing.T) {
	age := 7
	height := 120.0
	values := RentFormValues{
		Extras:   []string{"gps", "kiszallitas"},
		Adults:   FlexInt{Value: 2, Valid: true},
		Children: []Child{{Age: &age, Height: &height}},
		Driver: []Driver{{
			FirstName1:  "Istvan",
			LastName1:   "Kovacs",
			PhoneNumber: "+36301234567",
			Email:       "kovacs@example.com",
		}},
		Invoice:  Invoice{Same: true, Name: "Kovacs Istvan", Email: "kovacs@example.com"},
		Tax:      Tax{ID: "12345678-1-42", CompanyName: "Kovacs Kft"},
		Consents: Consents{Privacy: true, Terms: true},
		Delivery: &Delivery{
			PlaceType: "accommodation",
			Address:   &Address{Country: "Hungary", PostalCode: "8600", City: "Siofok"},
		},
	}

	once := BuildCompactRentPayload(values)
	twice := BuildCompactRentPayload(once.FormValues())

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("compaction drifted across saves:\n first: %+v\nsecond: %+v", once, twice)
	}
}

func TestFlexInt_Decoding(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValid bool
		wantValue int
	}{
		{"number", `2`, true, 2},
		{"numeric string", `"3"`, true, 3},
		{"null", `null`, false, 0},
		{"non-numeric string", `"sok"`, false, 0},
		{"object", `{}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexInt
			if err := json.Unmarshal([]byte(tt.raw), &f); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Valid != tt.wantValid || f.Value != tt.wantValue {
				t.Errorf("FlexInt(%s) = {%d %v}, want {%d %v}", tt.raw, f.Value, f.Valid, tt.wantValue, tt.wantValid)
			}
		})
	}
}

func TestParseRentPayload_AdultsNumericString(t *testing.T) {
	raw := []byte(`{"v": 2, "adults": 2, "children": [], "extras": [], "driver": [], "invoice": {}, "tax": {}, "consents": {"privacy": true, "terms": true}, "deliveryAddress": null}`)

	parsed, err := ParseRentPayload(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Compact.Adults == nil || *parsed.Compact.Adults != 2 {
		t.Errorf("Adults = %v, want 2", parsed.Compact.Adults)
	}
}

func TestErrUnrecognizedPayload_Identity(t *testing.T) {
	_, err := ParseRentPayload(json.RawMessage(`{"something": "else"}`))
	if !errors.Is(err, ErrUnrecognizedPayload) {
		t.Errorf("expected ErrUnrecognizedPayload, got %v", err)
	}
}
