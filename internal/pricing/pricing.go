// Package pricing computes nightly rates, stay totals, discounts and tax.
// All amounts are cents; every monetary boundary goes through the single
// RoundHalfUp policy so repeated recomputation never drifts.
package pricing

import (
	"math"
	"time"

	"github.com/grandline-hms/service-reservation/internal/domain/room"
)

// SeasonalWindow is a closed date interval carrying its own multiplier.
type SeasonalWindow struct {
	Name       string    `mapstructure:"name" json:"name"`
	From       time.Time `mapstructure:"from" json:"from"`
	To         time.Time `mapstructure:"to" json:"to"`
	Multiplier float64   `mapstructure:"multiplier" json:"multiplier"`
}

// Config holds the pricing tunables.
type Config struct {
	TaxRate           float64 `mapstructure:"tax_rate"`
	WeekdayMultiplier float64 `mapstructure:"weekday_multiplier"`
	WeekendMultiplier float64 `mapstructure:"weekend_multiplier"`
	SeasonalWindows   []SeasonalWindow
}

// DefaultConfig returns the standard pricing configuration: 13% tax, flat
// weekday rate, 25% weekend premium, no seasonal windows.
func DefaultConfig() Config {
	return Config{
		TaxRate:           0.13,
		WeekdayMultiplier: 1.0,
		WeekendMultiplier: 1.25,
	}
}

// Engine is the pricing calculator. It is stateless and safe for concurrent
// use.
type Engine struct {
	cfg Config
}

// NewEngine creates a pricing engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.TaxRate == 0 {
		cfg.TaxRate = 0.13
	}
	if cfg.WeekdayMultiplier == 0 {
		cfg.WeekdayMultiplier = 1.0
	}
	if cfg.WeekendMultiplier == 0 {
		cfg.WeekendMultiplier = 1.0
	}
	return &Engine{cfg: cfg}
}

// RoundHalfUp rounds a cent amount half-up to a whole cent. This is the only
// rounding primitive in the codebase.
func RoundHalfUp(cents float64) int64 {
	return int64(math.Floor(cents + 0.5))
}

// IsWeekend reports whether the date carries the weekend multiplier.
// Friday, Saturday and Sunday nights count as weekend.
func IsWeekend(date time.Time) bool {
	switch date.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		return true
	}
	return false
}

// seasonalMultiplier returns the multiplier of the seasonal window covering
// the date. When several windows overlap, the highest multiplier wins, which
// keeps the result deterministic regardless of window order.
func (e *Engine) seasonalMultiplier(date time.Time) float64 {
	mult := 1.0
	for _, w := range e.cfg.SeasonalWindows {
		if !date.Before(w.From) && !date.After(w.To) && w.Multiplier > mult {
			mult = w.Multiplier
		}
	}
	return mult
}

// NightlyRate computes the rate for one night: base rate times the weekday or
// weekend multiplier times the seasonal multiplier, rounded to the cent.
func (e *Engine) NightlyRate(roomType room.Type, date time.Time) int64 {
	info, ok := room.TypeInfoFor(roomType)
	if !ok {
		return 0
	}
	mult := e.cfg.WeekdayMultiplier
	if IsWeekend(date) {
		mult = e.cfg.WeekendMultiplier
	}
	return RoundHalfUp(float64(info.BaseRateCents) * mult * e.seasonalMultiplier(date))
}

// StayTotal sums the nightly rates for every date in [checkIn, checkOut).
// The check-out day itself is never charged.
func (e *Engine) StayTotal(roomType room.Type, checkIn, checkOut time.Time) int64 {
	var total int64
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		total += e.NightlyRate(roomType, d)
	}
	return total
}

// AverageNightlyRate is the stay total divided by nights, rounded to the
// cent. It is used for display and for locking per-room rates at assignment
// time. With zero nights it falls back to the base rate.
func (e *Engine) AverageNightlyRate(roomType room.Type, checkIn, checkOut time.Time) int64 {
	nights := int64(checkOut.Sub(checkIn).Hours() / 24)
	if nights <= 0 {
		info, _ := room.TypeInfoFor(roomType)
		return info.BaseRateCents
	}
	return RoundHalfUp(float64(e.StayTotal(roomType, checkIn, checkOut)) / float64(nights))
}

// ApplyPercentageDiscount returns the amount after a percentage discount,
// rounded to the cent.
func (e *Engine) ApplyPercentageDiscount(amountCents int64, pct float64) int64 {
	if pct <= 0 {
		return amountCents
	}
	if pct >= 100 {
		return 0
	}
	return RoundHalfUp(float64(amountCents) * (1 - pct/100))
}

// LoyaltyDiscount converts points to a cent discount at the given conversion
// rate (points per currency unit), capped so it never exceeds the payable
// amount.
func (e *Engine) LoyaltyDiscount(amountCents, points int64, conversionRate float64) int64 {
	if points <= 0 || conversionRate <= 0 {
		return 0
	}
	discount := RoundHalfUp(float64(points) / conversionRate * 100)
	if discount > amountCents {
		discount = amountCents
	}
	return discount
}

// Tax computes the tax on a post-discount amount, rounded to the cent.
func (e *Engine) Tax(amountCents int64) int64 {
	return RoundHalfUp(float64(amountCents) * e.cfg.TaxRate)
}

// TaxRate exposes the configured rate for display.
func (e *Engine) TaxRate() float64 {
	return e.cfg.TaxRate
}
