// Package humanid generates the human-readable booking references shown
// to customers as confirmation codes. References are year-scoped
// sequential strings of the form "2025/0008", counted independently per
// logical table.
package humanid

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "rentdesk/pkg/errors"
	"rentdesk/pkg/logger"
)

// Table identifies which record collection a reference is scoped to.
type Table string

const (
	TableContactQuotes Table = "ContactQuotes"
	TableRentRequests  Table = "RentRequests"
)

// Pad is the minimum width of the numeric suffix. Counters grow past
// four digits without truncation.
const Pad = 4

// CounterStore hands out the next sequence number for a (table, year)
// pair. Implementations must make the increment atomic: two concurrent
// calls never observe the same value.
type CounterStore interface {
	NextSequence(ctx context.Context, table Table, year int) (int64, error)
}

type Generator struct {
	store CounterStore
	log   *logger.Logger
}

func NewGenerator(store CounterStore, log *logger.Logger) *Generator {
	return &Generator{store: store, log: log}
}

// Next returns the next unused reference for the table at the given
// wall-clock time. On store failure it returns a recoverable error; the
// caller decides whether to proceed with a null reference or abort.
func (g *Generator) Next(ctx context.Context, table Table, now time.Time) (string, error) {
	year := now.Year()

	seq, err := g.store.NextSequence(ctx, table, year)
	if err != nil {
		g.log.Error("Failed to generate booking reference",
			"table", table,
			"year", year,
			"error", err,
		)
		return "", apperrors.Wrap(err, apperrors.CodeUnavailable,
			fmt.Sprintf("could not generate booking reference for %s", table), 503)
	}

	return Format(year, seq), nil
}

// Format renders a reference string from its parts.
func Format(year int, seq int64) string {
	return fmt.Sprintf("%d/%0*d", year, Pad, seq)
}

// Parse splits a reference into year and sequence number. It accepts
// any numeric suffix width so pre-counter rows parse too.
func Parse(ref string) (year int, seq int64, ok bool) {
	prefix, suffix, found := strings.Cut(ref, "/")
	if !found {
		return 0, 0, false
	}

	year, err := strconv.Atoi(prefix)
	if err != nil || year < 1000 || year > 9999 {
		return 0, 0, false
	}

	seq, err = strconv.ParseInt(suffix, 10, 64)
	if err != nil || seq < 0 {
		return 0, 0, false
	}

	return year, seq, true
}
