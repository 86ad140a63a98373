package pricing

import (
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/shopspring/decimal"
)

// Phase labels a pricing sub-period. Labels are persisted in the per-tier
// audit context, so they are part of the stored data format.
type Phase string

const (
	PhasePreSale               Phase = "PreSale"
	PhaseCrowdSaleInitial      Phase = "CrowdSaleInitial"
	PhaseCrowdSaleFirstDay     Phase = "CrowdSaleFirstDay"
	PhaseCrowdSaleFirstWeek    Phase = "CrowdSaleFirstWeek"
	PhaseCrowdSaleSecondWeek   Phase = "CrowdSaleSecondWeek"
	PhaseCrowdSaleLastWeek     Phase = "CrowdSaleLastWeek"
	PhaseReferralDiscount      Phase = "ReferralDiscount"
	PhaseReferralOwnerDiscount Phase = "ReferralOwnerDiscount"
)

// Band is one time slice of the crowdsale discount schedule. Within is the
// elapsed time since crowdsale start that the band covers; zero means
// open-ended (the tail band).
type Band struct {
	Within          time.Duration
	Phase           Phase
	DiscountPercent decimal.Decimal
}

// Schedule holds the discount configuration as ordered data. Deployments
// disagree on the exact numbers, so nothing here is hardcoded into the
// resolution logic.
type Schedule struct {
	// Presale: flat discount, volume-independent.
	PreSaleDiscountPercent decimal.Decimal

	// Crowdsale volume tier: the first InitialVolume tokens sell at
	// InitialDiscountPercent regardless of elapsed time.
	InitialVolume          decimal.Decimal
	InitialDiscountPercent decimal.Decimal

	// Crowdsale time tiers after the volume tier is exhausted, ordered by
	// Within ascending, last band open-ended.
	Bands []Band

	// ReferralPhases are the time phases in which referral discounts may
	// override the schedule price.
	ReferralPhases []Phase
}

// DefaultSchedule is the canonical deployment schedule: presale 25% off,
// first 20,000,000 crowdsale tokens 25% off, then 20% for the first day,
// 15% for the first week, 10% for the second week, full price afterwards.
func DefaultSchedule() Schedule {
	return Schedule{
		PreSaleDiscountPercent: decimal.NewFromInt(25),
		InitialVolume:          decimal.NewFromInt(20_000_000),
		InitialDiscountPercent: decimal.NewFromInt(25),
		Bands: []Band{
			{Within: 24 * time.Hour, Phase: PhaseCrowdSaleFirstDay, DiscountPercent: decimal.NewFromInt(20)},
			{Within: 7 * 24 * time.Hour, Phase: PhaseCrowdSaleFirstWeek, DiscountPercent: decimal.NewFromInt(15)},
			{Within: 14 * 24 * time.Hour, Phase: PhaseCrowdSaleSecondWeek, DiscountPercent: decimal.NewFromInt(10)},
			{Phase: PhaseCrowdSaleLastWeek, DiscountPercent: decimal.Zero},
		},
		ReferralPhases: []Phase{PhaseCrowdSaleSecondWeek, PhaseCrowdSaleLastWeek},
	}
}

// Quote is the resolved unit price and phase for one instant and volume.
type Quote struct {
	Price decimal.Decimal `json:"price"`
	Phase Phase           `json:"phase"`
}

// Resolve maps a timestamp and the cumulative sold volume to the active
// quote. Returns nil when the timestamp is outside both campaign windows;
// that is a signal, not an error.
func (s Schedule) Resolve(cs *campaignmodels.CampaignSettings, at time.Time, currentTotal decimal.Decimal) *Quote {
	if cs.IsPreSale(at) {
		return &Quote{Price: DiscountedPrice(cs.TokenBasePriceUsd, s.PreSaleDiscountPercent), Phase: PhasePreSale}
	}
	if !cs.IsCrowdSale(at) {
		return nil
	}
	if currentTotal.LessThan(s.InitialVolume) {
		return &Quote{Price: DiscountedPrice(cs.TokenBasePriceUsd, s.InitialDiscountPercent), Phase: PhaseCrowdSaleInitial}
	}
	return s.timeQuote(cs, at)
}

// timeQuote resolves the time-based crowdsale band for a timestamp,
// ignoring the volume tier. Used directly when pricing the portion of a
// purchase that exceeds the volume boundary.
func (s Schedule) timeQuote(cs *campaignmodels.CampaignSettings, at time.Time) *Quote {
	elapsed := at.Sub(cs.CrowdSaleStartUTC)
	for _, band := range s.Bands {
		if band.Within == 0 || elapsed < band.Within {
			return &Quote{Price: DiscountedPrice(cs.TokenBasePriceUsd, band.DiscountPercent), Phase: band.Phase}
		}
	}
	// Schedule without an open-ended tail: full price.
	return &Quote{Price: cs.TokenBasePriceUsd, Phase: PhaseCrowdSaleLastWeek}
}

// referralEligible reports whether referral overrides apply in the phase.
func (s Schedule) referralEligible(p Phase) bool {
	for _, rp := range s.ReferralPhases {
		if rp == p {
			return true
		}
	}
	return false
}

// DiscountedPrice applies a percentage discount to the base unit price.
func DiscountedPrice(base, discountPercent decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return base.Mul(hundred.Sub(discountPercent)).Div(hundred)
}
