package model

import "testing"

func TestFormatDeliveryAddressLine(t *testing.T) {
	line := FormatDeliveryAddressLine(&Address{
		Country:    " Magyarország ",
		PostalCode: "1052",
		City:       "Budapest",
		Street:     "Fő   utca 12.",
	})
	want := "Magyarország, 1052, Budapest, Fő utca 12."
	if line != want {
		t.Errorf("FormatDeliveryAddressLine = %q, want %q", line, want)
	}

	if got := FormatDeliveryAddressLine(nil); got != "" {
		t.Errorf("expected empty line for nil address, got %q", got)
	}
	if got := FormatDeliveryAddressLine(&Address{Country: "   "}); got != "" {
		t.Errorf("expected empty line for blank segments, got %q", got)
	}
}

func TestBuildDeliveryDetails(t *testing.T) {
	details := BuildDeliveryDetails(&Delivery{
		PlaceType:     " airport ",
		LocationName:  "BUD T2",
		ArrivalFlight: " W62208 ",
	})
	if details == nil {
		t.Fatal("expected details for a populated delivery block")
	}
	if details.PlaceType != "airport" || details.ArrivalFlight != "W62208" {
		t.Errorf("expected trimmed fields, got %+v", details)
	}

	if BuildDeliveryDetails(nil) != nil {
		t.Error("expected nil details for nil delivery")
	}
	if BuildDeliveryDetails(&Delivery{PlaceType: "  "}) != nil {
		t.Error("expected nil details when every field is blank")
	}
}
