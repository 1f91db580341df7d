package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariiahub/booking-core/internal/model"
)

func testService(priceCents uint32) *model.Service {
	return &model.Service{
		ID:             1,
		Name:           "Deep Tissue Massage",
		Capacity:       3,
		GroupAllowed:   true,
		MaxGroupSize:   5,
		BasePriceCents: priceCents,
		Active:         true,
	}
}

func quote(t *testing.T, svc *model.Service, party uint32, slot, now time.Time) Decision {
	t.Helper()
	d, err := RuleQuoter{}.Quote(context.Background(), svc, party, slot, now)
	require.NoError(t, err)
	return d
}

func TestQuoteNoRules(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	slot := now.Add(48 * time.Hour) // March, 2 days out

	d := quote(t, testService(2500), 1, slot, now)
	assert.Equal(t, uint32(2500), d.BaseAmountCents)
	assert.Zero(t, d.DiscountCents)
	assert.Equal(t, uint32(2500), d.FinalAmountCents)
	assert.Empty(t, d.AppliedRules)
	assert.Equal(t, "", d.RulesCSV())
}

func TestQuoteGroupDiscount(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	slot := now.Add(48 * time.Hour)

	d := quote(t, testService(2500), 3, slot, now)
	assert.Equal(t, uint32(7500), d.BaseAmountCents)
	assert.Equal(t, uint32(750), d.DiscountCents) // 10%
	assert.Equal(t, uint32(6750), d.FinalAmountCents)
	assert.Equal(t, []string{RuleGroupDiscount}, d.AppliedRules)
}

func TestQuoteEarlyBird(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slot := now.Add(14 * 24 * time.Hour) // exactly 14 days: inclusive

	d := quote(t, testService(2000), 1, slot, now)
	assert.Equal(t, uint32(300), d.DiscountCents) // 15%
	assert.Equal(t, uint32(1700), d.FinalAmountCents)
	assert.Equal(t, []string{RuleEarlyBird}, d.AppliedRules)

	// One minute short of 14 days: no discount.
	d = quote(t, testService(2000), 1, slot.Add(-time.Minute), now)
	assert.Zero(t, d.DiscountCents)
}

func TestQuotePeakSeason(t *testing.T) {
	now := time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC)
	slot := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	d := quote(t, testService(1000), 1, slot, now)
	assert.Equal(t, uint32(1100), d.BaseAmountCents, "peak season marks the base up 10%")
	assert.Equal(t, []string{RulePeakSeason}, d.AppliedRules)
}

func TestQuoteOffSeason(t *testing.T) {
	// A week out, so the early-bird rule stays quiet and the seasonal
	// adjustment is the only rule in play.
	now := time.Date(2026, 1, 25, 9, 0, 0, 0, time.UTC)
	slot := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	d := quote(t, testService(1000), 1, slot, now)
	assert.Equal(t, uint32(950), d.BaseAmountCents, "off season marks the base down 5%")
	assert.Zero(t, d.DiscountCents)
	assert.Equal(t, []string{RuleOffSeason}, d.AppliedRules)
}

func TestQuoteStackedRules(t *testing.T) {
	// Group of 4, booked a month ahead, in peak season: both discounts
	// apply to the seasonal-adjusted base.
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	slot := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	d := quote(t, testService(2500), 4, slot, now)
	assert.Equal(t, uint32(11000), d.BaseAmountCents)             // 4 * 2500 * 1.10
	assert.Equal(t, uint32(2750), d.DiscountCents)                // 25% of 11000
	assert.Equal(t, uint32(8250), d.FinalAmountCents)             // customer pays the rest
	assert.Equal(t, "peak_season,group_discount,early_bird", d.RulesCSV())
}

func TestQuoteRoundsDown(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slot := now.Add(30 * 24 * time.Hour) // early bird, March slot

	// 3 * 333 = 999; seasonal untouched; 25% of 999 = 249.75 -> 249.
	d := quote(t, testService(333), 3, slot, now)
	assert.Equal(t, uint32(999), d.BaseAmountCents)
	assert.Equal(t, uint32(249), d.DiscountCents)
	assert.Equal(t, uint32(750), d.FinalAmountCents)
}
