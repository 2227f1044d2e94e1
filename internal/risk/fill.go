package risk

import (
	"crossmargin/internal/num"

	"github.com/shopspring/decimal"
)

// FillCase classifies a fill against the existing position.
type FillCase int

const (
	FillIncrease FillCase = iota
	FillExactClose
	FillReduce
	FillFlip
)

func (c FillCase) String() string {
	switch c {
	case FillIncrease:
		return "increase"
	case FillExactClose:
		return "exact_close"
	case FillReduce:
		return "reduce"
	case FillFlip:
		return "flip"
	default:
		return "unknown"
	}
}

// FillResult is the position transition produced by one fill. NewQuantity
// zero means the position is deleted.
type FillResult struct {
	Case         FillCase
	NewQuantity  decimal.Decimal
	NewCostBasis decimal.Decimal
	RealizedPnL  decimal.Decimal
}

// ApplyFill computes the position transition for a signed fill. It is the
// single source of the four-case arithmetic; the pre-trade simulation and
// the event application both go through it, so live state and replayed
// state move by identical code.
func ApplyFill(oldQty, oldCost, fillQty, fillPrice decimal.Decimal) FillResult {
	newQty := oldQty.Add(fillQty)

	switch {
	case oldQty.IsZero() || oldQty.Sign() == fillQty.Sign():
		// Increase (or fresh open): cost accrues at fill price, nothing realizes.
		return FillResult{
			Case:         FillIncrease,
			NewQuantity:  newQty,
			NewCostBasis: oldCost.Add(fillQty.Mul(fillPrice)),
		}

	case newQty.IsZero():
		return FillResult{
			Case:        FillExactClose,
			RealizedPnL: fillPrice.Mul(oldQty).Sub(oldCost),
		}

	case newQty.Sign() == oldQty.Sign():
		// Partial reduce: the closed portion realizes its value at the
		// fill price minus its share of the cost basis. At close_ratio -1
		// this degenerates to the exact-close form.
		closeRatio := num.Div(fillQty, oldQty) // negative
		realized := closeRatio.Mul(oldCost).Sub(fillQty.Mul(fillPrice))
		return FillResult{
			Case:         FillReduce,
			NewQuantity:  newQty,
			NewCostBasis: oldCost.Mul(num.One.Add(closeRatio)),
			RealizedPnL:  realized,
		}

	default:
		// Flip: exact close of the old quantity at fill price, then a
		// fresh open of the residual. Only the close leg realizes.
		return FillResult{
			Case:         FillFlip,
			NewQuantity:  newQty,
			NewCostBasis: newQty.Mul(fillPrice),
			RealizedPnL:  fillPrice.Mul(oldQty).Sub(oldCost),
		}
	}
}

// RiskReducing reports whether a fill strictly shrinks position magnitude
// without crossing zero. Such fills bypass the initial-margin gate so a
// mid-health account can always de-risk.
func RiskReducing(oldQty, fillQty decimal.Decimal) bool {
	newQty := oldQty.Add(fillQty)
	if newQty.Sign() != 0 && newQty.Sign() != oldQty.Sign() {
		return false // flip
	}
	return newQty.Abs().Cmp(oldQty.Abs()) < 0
}
