package pricing

import (
	"errors"
	"time"

	campaignmodels "github.com/lunavault/saleflow/pkg/db/models/campaign"
	"github.com/shopspring/decimal"
)

// ErrNoActivePhase is returned when a timestamp falls outside both campaign
// windows. Callers validate windows before pricing, so hitting this during
// processing means the settings changed between validation and pricing.
var ErrNoActivePhase = errors.New("pricing: timestamp outside campaign windows")

// Tier is one contiguous slice of a purchase at a single unit price. A
// purchase yields one tier, or two when it straddles the volume boundary.
type Tier struct {
	Count decimal.Decimal `json:"count"`
	Price decimal.Decimal `json:"price"`
	Phase Phase           `json:"phase"`
}

// SumCounts adds up the token counts of a tier list.
func SumCounts(tiers []Tier) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tiers {
		total = total.Add(t.Count)
	}
	return total
}

// EffectivePrice is the persisted unit price for a tier list: the single
// tier's price, or the USD-weighted average when the purchase split. Never
// the arithmetic mean of tier prices.
func EffectivePrice(tiers []Tier, amountUsd decimal.Decimal) decimal.Decimal {
	if len(tiers) == 1 {
		return tiers[0].Price
	}
	total := SumCounts(tiers)
	if total.IsZero() {
		return decimal.Zero
	}
	return amountUsd.Div(total)
}

// PriceList converts a USD amount into an ordered list of one or more tiers.
//
// Token counts always round down to the configured decimals so the campaign
// never sells more tokens than the USD received pays for. A zero USD amount
// still yields a single zero-count tier at the resolved price.
func (s Schedule) PriceList(
	cs *campaignmodels.CampaignSettings,
	account *campaignmodels.InvestorAccount,
	at time.Time,
	amountUsd decimal.Decimal,
	currentTotal decimal.Decimal,
) ([]Tier, error) {
	quote := s.Resolve(cs, at, currentTotal)
	if quote == nil {
		return nil, ErrNoActivePhase
	}

	tokens := amountUsd.Div(quote.Price).RoundFloor(cs.TokenDecimals)

	if quote.Phase == PhaseCrowdSaleInitial {
		below := s.InitialVolume.Sub(currentTotal)
		if below.IsPositive() && tokens.GreaterThan(below) {
			// The purchase crosses the volume boundary: the low tier is
			// filled exactly, the rest is priced at the time-based band.
			low := Tier{Count: below, Price: quote.Price, Phase: quote.Phase}

			remainingUsd := amountUsd.Sub(below.Mul(quote.Price))
			next := s.timeQuote(cs, at)
			high := Tier{
				Count: remainingUsd.Div(next.Price).RoundFloor(cs.TokenDecimals),
				Price: next.Price,
				Phase: next.Phase,
			}
			return []Tier{low, high}, nil
		}
	}

	if cs.EnableReferralProgram && s.referralEligible(quote.Phase) {
		if !cs.ReferralDiscount.IsZero() && account.ReferralCodeApplied != "" {
			price := DiscountedPrice(cs.TokenBasePriceUsd, cs.ReferralDiscount)
			return []Tier{{
				Count: amountUsd.Div(price).RoundFloor(cs.TokenDecimals),
				Price: price,
				Phase: PhaseReferralDiscount,
			}}, nil
		}
		if !cs.ReferralOwnerDiscount.IsZero() && account.ReferralsNumber > 0 {
			price := DiscountedPrice(cs.TokenBasePriceUsd, cs.ReferralOwnerDiscount)
			return []Tier{{
				Count: amountUsd.Div(price).RoundFloor(cs.TokenDecimals),
				Price: price,
				Phase: PhaseReferralOwnerDiscount,
			}}, nil
		}
	}

	return []Tier{{Count: tokens, Price: quote.Price, Phase: quote.Phase}}, nil
}
