// Package core holds the currency box domain: records, view models and the
// deterministic price generator.
//
// Prices are simulated. For a currency id and a calendar day the generator
// hashes the seed string "<id>-<month>-<day>-<year>", turns the hash into a
// pseudo-random fraction and maps it into the currency's price range. The
// same inputs always produce the same price.
package core

import (
	"fmt"
	"math"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"
)

// randomScale is the multiplier applied to sin(seed) before taking the fractional part.
const randomScale = 10000

// FormatDate renders t as month-day-year without zero padding, e.g. "3-15-2025".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", int(t.Month()), t.Day(), t.Year())
}

// SeedString joins a currency id and a calendar day into the hash input.
func SeedString(id string, day time.Time) string {
	return id + "-" + FormatDate(day)
}

// HashString computes the 31-multiplier rolling hash over the UTF-16 code
// units of s, wrapping to a signed 32-bit integer at every step, and returns
// its absolute value.
func HashString(s string) int64 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// SeededRandom maps seed to a fraction in [0, 1).
func SeededRandom(seed int64) float64 {
	x := math.Sin(float64(seed)) * randomScale
	f := x - math.Floor(x)
	if f >= 1 {
		// floor rounding on huge x can push the difference to 1
		return 0
	}
	return f
}

// PriceFor maps the hash of seed into r, rounded to cents.
func PriceFor(seed string, r PriceRange) decimal.Decimal {
	rnd := SeededRandom(HashString(seed))
	raw := r.Min + rnd*(r.Max-r.Min)
	return clamp(decimal.NewFromFloat(raw).Round(2), r)
}

func clamp(d decimal.Decimal, r PriceRange) decimal.Decimal {
	lo := decimal.NewFromFloat(r.Min)
	hi := decimal.NewFromFloat(r.Max)
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}

// Generator derives prices and price histories from a range table.
// It holds no mutable state and is safe for concurrent use.
type Generator struct {
	Ranges RangeTable
}

// NewGenerator returns a generator over ranges.
func NewGenerator(ranges RangeTable) *Generator {
	return &Generator{Ranges: ranges}
}

// Price returns the price of id on the calendar day of day.
func (g *Generator) Price(id string, day time.Time) decimal.Decimal {
	return PriceFor(SeedString(id, day), g.Ranges.Lookup(id))
}

// History returns days entries ending at day, most recent first.
// Entry i is exactly i calendar days before day.
func (g *Generator) History(id string, day time.Time, days int) []HistoryEntry {
	if days <= 0 {
		return nil
	}
	y, m, d := day.Date()
	entries := make([]HistoryEntry, 0, days)
	for i := 0; i < days; i++ {
		date := time.Date(y, m, d-i, 0, 0, 0, 0, day.Location())
		entries = append(entries, HistoryEntry{
			Date:  date,
			Label: FormatDate(date),
			Price: g.Price(id, date),
		})
	}
	return entries
}
