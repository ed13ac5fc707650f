package flow

import (
	"github.com/shopspring/decimal"

	"github.com/LeviathanSunset/toeknFlowAnalysis/internal/domain"
)

// Classification thresholds as fractions of token supply.
var (
	whaleFraction  = decimal.NewFromFloat(0.001)  // 0.1%
	largeFraction  = decimal.NewFromFloat(0.0005) // 0.05%
	mediumFraction = decimal.NewFromFloat(0.0001) // 0.01%

	// A high-frequency address whose net flow stays below this share of
	// the whale threshold churns volume without taking a position.
	marketMakerNetFraction = decimal.NewFromFloat(0.1)
)

// activeTxThreshold separates high-frequency traders from ordinary holders.
const activeTxThreshold = 10

// ClassifyAddress assigns a tier to a single address by its net flow and
// maximum gross position relative to token supply. Returns the empty tier
// when supply is unknown or zero, since the thresholds are undefined then.
func ClassifyAddress(s domain.AddressFlowStat, supply decimal.Decimal) domain.AddressTier {
	if !supply.IsPositive() {
		return ""
	}

	whale := supply.Mul(whaleFraction)
	large := supply.Mul(largeFraction)
	medium := supply.Mul(mediumFraction)

	absNet := s.NetFlow.Abs()
	maxPosition := decimal.Max(s.TotalIn, s.TotalOut)

	if s.InTxCount+s.OutTxCount >= activeTxThreshold {
		switch {
		case absNet.LessThan(whale.Mul(marketMakerNetFraction)):
			if maxPosition.GreaterThanOrEqual(whale) {
				return domain.TierLargeMarketMaker
			}
			return domain.TierMarketMaker
		case absNet.GreaterThanOrEqual(whale):
			return bySide(s.NetFlow, domain.TierWhaleBuyer, domain.TierWhaleSeller)
		case absNet.GreaterThanOrEqual(large):
			return bySide(s.NetFlow, domain.TierLargeBuyer, domain.TierLargeSeller)
		default:
			return bySide(s.NetFlow, domain.TierActiveBuyer, domain.TierActiveSeller)
		}
	}

	switch {
	case absNet.GreaterThanOrEqual(whale):
		return bySide(s.NetFlow, domain.TierWhaleBuyer, domain.TierWhaleSeller)
	case absNet.GreaterThanOrEqual(large):
		return bySide(s.NetFlow, domain.TierLargeBuyer, domain.TierLargeSeller)
	case absNet.GreaterThanOrEqual(medium):
		return bySide(s.NetFlow, domain.TierMediumBuyer, domain.TierMediumSeller)
	case s.NetFlow.IsPositive():
		return domain.TierBuyer
	case s.NetFlow.IsNegative():
		return domain.TierSeller
	default:
		return domain.TierNeutral
	}
}

func bySide(net decimal.Decimal, buy, sell domain.AddressTier) domain.AddressTier {
	if net.IsPositive() {
		return buy
	}
	return sell
}
