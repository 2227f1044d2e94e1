package event

// Kind discriminates event payloads.
type Kind int32

const (
	KindUnknown Kind = iota
	KindMarketInit
	KindDeposit
	KindWithdraw
	KindTradeFill
	KindMarkPriceUpdate
	KindFundingUpdate
	KindLiquidationFill
	KindTradeRejected
	KindWithdrawalRejected
)

// Envelope wraps every event in the log. Sequence is the sole ordering key,
// assigned by the engine's sequencer. StateHash and PrevHash form the
// integrity chain over post-apply state snapshots; they are recomputed
// deterministically on replay and compared.
type Envelope struct {
	Sequence  uint64
	Payload   Event
	StateHash [32]byte
	PrevHash  [32]byte
	// HasHash reports whether the hash fields were recorded. Logs written
	// by external producers may omit them; replay then skips chain checks.
	HasHash bool
}

// Event is the sealed interface all payloads implement. The set of
// implementations is closed; dispatch is by exhaustive type switch.
type Event interface {
	// Kind returns the discriminator.
	Kind() Kind

	// AccountID returns the account context ("" for market-scoped events).
	AccountID() string

	// MarketID returns the market context ("" for account-only events).
	MarketID() string
}

func (k Kind) String() string {
	switch k {
	case KindMarketInit:
		return "MarketInit"
	case KindDeposit:
		return "Deposit"
	case KindWithdraw:
		return "Withdraw"
	case KindTradeFill:
		return "TradeFill"
	case KindMarkPriceUpdate:
		return "MarkPriceUpdate"
	case KindFundingUpdate:
		return "FundingUpdate"
	case KindLiquidationFill:
		return "LiquidationFill"
	case KindTradeRejected:
		return "TradeRejected"
	case KindWithdrawalRejected:
		return "WithdrawalRejected"
	default:
		return "Unknown"
	}
}

// ParseKind maps a wire tag back to its Kind. KindUnknown means the tag is
// not part of the closed set.
func ParseKind(s string) Kind {
	switch s {
	case "MarketInit":
		return KindMarketInit
	case "Deposit":
		return KindDeposit
	case "Withdraw":
		return KindWithdraw
	case "TradeFill":
		return KindTradeFill
	case "MarkPriceUpdate":
		return KindMarkPriceUpdate
	case "FundingUpdate":
		return KindFundingUpdate
	case "LiquidationFill":
		return KindLiquidationFill
	case "TradeRejected":
		return KindTradeRejected
	case "WithdrawalRejected":
		return KindWithdrawalRejected
	default:
		return KindUnknown
	}
}
