// Package pricing is the collaborator the commit path consults for the
// authoritative price of a reservation.  The core treats quoting as a
// pure function of (service, party size, slot start, now): nothing here
// is cached across the hold → convert gap, because rules may change
// while a customer fills in their details.
package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/mariiahub/booking-core/internal/model"
)

// Rule names reported in Decision.AppliedRules.
const (
	RuleGroupDiscount = "group_discount"
	RuleEarlyBird     = "early_bird"
	RulePeakSeason    = "peak_season"
	RuleOffSeason     = "off_season"
)

// Decision is the priced outcome for a candidate reservation.  The core
// persists these fields on the booking and does nothing else with them;
// invoice and tax formatting live outside this service.
type Decision struct {
	BaseAmountCents  uint32
	DiscountCents    uint32
	FinalAmountCents uint32
	AppliedRules     []string
}

// RulesCSV renders the applied rule names for storage.
func (d Decision) RulesCSV() string {
	return strings.Join(d.AppliedRules, ",")
}

// Quoter produces a pricing decision for a candidate reservation.  An
// error aborts the conversion and leaves the hold intact so the
// customer can retry without re-acquiring capacity.
type Quoter interface {
	Quote(ctx context.Context, svc *model.Service, partySize uint32, slotStartsAt, now time.Time) (Decision, error)
}

// RuleQuoter is the default Quoter: the standard studio discounts,
// evaluated in a fixed order against the service's base price.
//
//	group_discount – 10% off when the party is 3 or more
//	early_bird     – 15% off when booked 14+ days ahead
//	peak_season    – +10% in June through August
//	off_season     – 5% off in January and February
//
// Discounts apply to the seasonal-adjusted base.  All arithmetic is in
// integer cents; fractions round down in the customer's favor.
type RuleQuoter struct{}

const (
	groupDiscountMinParty = 3
	groupDiscountPct      = 10
	earlyBirdDays         = 14
	earlyBirdPct          = 15
	peakSeasonPct         = 10
	offSeasonPct          = 5
)

func (RuleQuoter) Quote(_ context.Context, svc *model.Service, partySize uint32, slotStartsAt, now time.Time) (Decision, error) {
	base := uint64(svc.BasePriceCents) * uint64(partySize)

	var rules []string
	adjusted := base
	switch slotStartsAt.UTC().Month() {
	case time.June, time.July, time.August:
		adjusted = base * (100 + peakSeasonPct) / 100
		rules = append(rules, RulePeakSeason)
	case time.January, time.February:
		adjusted = base * (100 - offSeasonPct) / 100
		rules = append(rules, RuleOffSeason)
	}

	discountPct := uint64(0)
	if partySize >= groupDiscountMinParty {
		discountPct += groupDiscountPct
		rules = append(rules, RuleGroupDiscount)
	}
	if slotStartsAt.Sub(now) >= earlyBirdDays*24*time.Hour {
		discountPct += earlyBirdPct
		rules = append(rules, RuleEarlyBird)
	}

	discount := adjusted * discountPct / 100
	return Decision{
		BaseAmountCents:  uint32(adjusted),
		DiscountCents:    uint32(discount),
		FinalAmountCents: uint32(adjusted - discount),
		AppliedRules:     rules,
	}, nil
}
