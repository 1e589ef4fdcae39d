package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grandline-hms/service-reservation/internal/domain/room"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		name  string
		cents float64
		want  int64
	}{
		{"exact", 300.0, 300},
		{"half rounds up", 35.5, 36},
		{"below half rounds down", 35.49, 35},
		{"above half rounds up", 35.51, 36},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundHalfUp(tt.cents))
		})
	}
}

func TestIsWeekend(t *testing.T) {
	// 2026-01-05 is a Monday.
	assert.False(t, IsWeekend(date(2026, time.January, 5)))  // Mon
	assert.False(t, IsWeekend(date(2026, time.January, 6)))  // Tue
	assert.False(t, IsWeekend(date(2026, time.January, 7)))  // Wed
	assert.False(t, IsWeekend(date(2026, time.January, 8)))  // Thu
	assert.True(t, IsWeekend(date(2026, time.January, 9)))   // Fri
	assert.True(t, IsWeekend(date(2026, time.January, 10)))  // Sat
	assert.True(t, IsWeekend(date(2026, time.January, 11)))  // Sun
}

func TestStayTotal_WeekdayNights(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// Single room at $100/night, Mon..Thu: three weekday nights.
	checkIn := date(2026, time.January, 5)
	checkOut := date(2026, time.January, 8)

	subtotal := engine.StayTotal(room.TypeSingle, checkIn, checkOut)
	assert.Equal(t, int64(30000), subtotal)

	tax := engine.Tax(subtotal)
	assert.Equal(t, int64(3900), tax)
	assert.Equal(t, int64(33900), subtotal+tax)
}

func TestStayTotal_AdminDiscountThenTax(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	checkIn := date(2026, time.January, 5)
	checkOut := date(2026, time.January, 8)

	subtotal := engine.StayTotal(room.TypeSingle, checkIn, checkOut)
	taxable := engine.ApplyPercentageDiscount(subtotal, 10)
	assert.Equal(t, int64(27000), taxable)

	tax := engine.Tax(taxable)
	assert.Equal(t, int64(3510), tax)
	assert.Equal(t, int64(30510), taxable+tax)
}

func TestStayTotal_WeekendNights(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// Fri..Sun: two nights, both Friday and Saturday carry the weekend rate.
	checkIn := date(2026, time.January, 9)
	checkOut := date(2026, time.January, 11)

	total := engine.StayTotal(room.TypeSingle, checkIn, checkOut)
	assert.Equal(t, int64(25000), total) // 2 * 10000 * 1.25
}

func TestNightlyRate_SeasonalHighestWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeasonalWindows = []SeasonalWindow{
		{Name: "summer", From: date(2026, time.June, 15), To: date(2026, time.September, 1), Multiplier: 1.5},
		{Name: "festival", From: date(2026, time.July, 1), To: date(2026, time.July, 7), Multiplier: 2.0},
	}
	engine := NewEngine(cfg)

	// 2026-07-02 is a Thursday inside both windows; the festival multiplier wins.
	rate := engine.NightlyRate(room.TypeSingle, date(2026, time.July, 2))
	assert.Equal(t, int64(20000), rate)

	// 2026-06-18 is a Thursday inside only the summer window.
	rate = engine.NightlyRate(room.TypeSingle, date(2026, time.June, 18))
	assert.Equal(t, int64(15000), rate)

	// Closed interval: both boundary dates are in season.
	rate = engine.NightlyRate(room.TypeSingle, date(2026, time.June, 15))
	assert.Equal(t, int64(15000), rate)

	// Outside every window, the weekday rate applies.
	rate = engine.NightlyRate(room.TypeSingle, date(2026, time.June, 10))
	assert.Equal(t, int64(10000), rate)
}

func TestNightlyRate_UnknownType(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	assert.Equal(t, int64(0), engine.NightlyRate(room.Type("igloo"), date(2026, time.January, 5)))
}

func TestAverageNightlyRate(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// Thu..Sun: one weekday night (Thu) plus two weekend nights (Fri, Sat).
	checkIn := date(2026, time.January, 8)
	checkOut := date(2026, time.January, 11)

	avg := engine.AverageNightlyRate(room.TypeSingle, checkIn, checkOut)
	assert.Equal(t, int64(11667), avg) // (10000 + 12500 + 12500) / 3 rounded

	// Zero nights falls back to the base rate.
	avg = engine.AverageNightlyRate(room.TypeSingle, checkIn, checkIn)
	assert.Equal(t, int64(10000), avg)
}

func TestApplyPercentageDiscount(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	assert.Equal(t, int64(27000), engine.ApplyPercentageDiscount(30000, 10))
	assert.Equal(t, int64(30000), engine.ApplyPercentageDiscount(30000, 0))
	assert.Equal(t, int64(30000), engine.ApplyPercentageDiscount(30000, -5))
	assert.Equal(t, int64(0), engine.ApplyPercentageDiscount(30000, 100))
	assert.Equal(t, int64(0), engine.ApplyPercentageDiscount(30000, 150))
}

func TestLoyaltyDiscount(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// 200 points at 100 points per dollar -> $2.00.
	assert.Equal(t, int64(200), engine.LoyaltyDiscount(30000, 200, 100.0))

	// Never exceeds the payable amount.
	assert.Equal(t, int64(150), engine.LoyaltyDiscount(150, 200, 100.0))

	assert.Equal(t, int64(0), engine.LoyaltyDiscount(30000, 0, 100.0))
	assert.Equal(t, int64(0), engine.LoyaltyDiscount(30000, 200, 0))
}

func TestTax_RepeatedComputationIsStable(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	first := engine.Tax(27000)
	second := engine.Tax(27000)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(3510), first)
}
