package model

import (
	"encoding/json"
	"strings"
)

// PricingSnapshot is the price breakdown copied from an accepted quote
// onto the rent request at creation time. Values are kept as submitted
// text so historical offers render exactly as they were sent.
type PricingSnapshot struct {
	RentalFee   *string `json:"rentalFee" bson:"rental_fee"`
	Insurance   *string `json:"insurance" bson:"insurance"`
	Deposit     *string `json:"deposit" bson:"deposit"`
	DeliveryFee *string `json:"deliveryFee" bson:"delivery_fee"`
	ExtrasFee   *string `json:"extrasFee" bson:"extras_fee"`
	Tip         *string `json:"tip" bson:"tip"`
}

// ParsePricingSnapshot extracts a price breakdown from a quote's stored
// booking request data. The data may be a single offer object or an
// array of offers; offerIndex selects one of the array (out of range or
// negative falls back to the first). Returns nil when the data is not
// an object or every field is blank.
func ParsePricingSnapshot(raw string, offerIndex int) *PricingSnapshot {
	record := selectOfferRecord(raw, offerIndex)
	if record == nil {
		return nil
	}

	snapshot := &PricingSnapshot{
		RentalFee:   normalizeSnapshotText(record["rentalFee"]),
		Insurance:   normalizeSnapshotText(record["insurance"]),
		Deposit:     normalizeSnapshotText(record["deposit"]),
		DeliveryFee: normalizeSnapshotText(record["deliveryFee"]),
		ExtrasFee:   normalizeSnapshotText(record["extrasFee"]),
		Tip:         normalizeSnapshotText(record["tip"]),
	}

	if snapshot.RentalFee == nil && snapshot.Insurance == nil &&
		snapshot.Deposit == nil && snapshot.DeliveryFee == nil &&
		snapshot.ExtrasFee == nil && snapshot.Tip == nil {
		return nil
	}
	return snapshot
}

func selectOfferRecord(raw string, offerIndex int) map[string]any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return nil
	}

	switch v := value.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) == 0 {
			return nil
		}
		index := offerIndex
		if index < 0 || index >= len(v) {
			index = 0
		}
		record, ok := v[index].(map[string]any)
		if !ok {
			record, ok = v[0].(map[string]any)
		}
		if !ok {
			return nil
		}
		return record
	default:
		return nil
	}
}

func normalizeSnapshotText(value any) *string {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
