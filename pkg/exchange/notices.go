package exchange

import "github.com/ethereum/go-ethereum/common"

// Event is the sub-kind carried by an execution-shaped notice (wire tag
// 'E'). It distinguishes order acknowledgements, fills, and rejections
// that all share the same {trader, id, symbol, side, quantity, price}
// shape, mirroring the event_what tag in the original wire format.
type Event uint8

const (
	EventNewOrder                     Event = 'N'
	EventExecution                    Event = 'E'
	EventRejectionInvalidSymbol       Event = 'r'
	EventRejectionInsufficientFunds   Event = 'R'
	EventRejectionInsufficientWithdraw Event = 'X'
)

// Notice is any of the three notice shapes the kernel emits: execution-
// shaped (new_order/execution/rejection), or wallet-shaped (deposit,
// withdraw).
type Notice interface{ noticeTag() byte }

// ExecutionNotice is the 'E'-tagged shape: order acks, fills, and
// rejections arising from order processing.
type ExecutionNotice struct {
	Trader   common.Address
	Event    Event
	ID       uint64
	Symbol   string
	Side     Side
	Quantity uint64
	Price    uint64
}

func (ExecutionNotice) noticeTag() byte { return 'E' }

// WalletNotice is the {trader, token, quantity} shape used for deposits
// ('D') and withdrawals ('W').
type WalletNotice struct {
	Trader   common.Address
	Token    common.Address
	Quantity uint64
	Withdraw bool
}

func (n WalletNotice) noticeTag() byte {
	if n.Withdraw {
		return 'W'
	}
	return 'D'
}

// Voucher is an outbound on-chain action: an ERC-20 transfer call
// destined for the given token contract.
type Voucher struct {
	Destination common.Address
	Payload     []byte
}
