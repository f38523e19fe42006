package wire

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// InputMetadata is what the rollup host attaches to every advance
// request: who sent it and when.
type InputMetadata struct {
	Sender      common.Address
	BlockNumber uint64
	Timestamp   uint64
	EpochIndex  uint64
	InputIndex  uint64
}

// Deposit is a decoded ERC-20 portal deposit.
type Deposit struct {
	Status bool
	Token  common.Address
	Sender common.Address
	Amount uint64 // low 8 bytes of the 256-bit big-endian amount
}

// DecodeDeposit parses a deposit blob. The caller is responsible for
// having already checked input_metadata.sender == ERC20_PORTAL_ADDRESS
// and len(blob) == DepositLength, per the advance dispatcher's routing
// rule (§4.F).
func DecodeDeposit(blob []byte) (Deposit, error) {
	if len(blob) != DepositLength {
		return Deposit{}, ErrShortBuffer
	}
	var d Deposit
	d.Status = blob[0] == DepositStatusSuccessful
	copy(d.Token[:], blob[1:21])
	copy(d.Sender[:], blob[21:41])
	d.Amount = binary.BigEndian.Uint64(blob[41+24 : 41+32])
	return d, nil
}

// NewOrderInput is a decoded new_order user input.
type NewOrderInput struct {
	Symbol   string
	Side     byte // SideBuy or SideSell
	Quantity uint64
	Price    uint64
}

// CancelOrderInput is a decoded cancel_order user input.
type CancelOrderInput struct {
	ID uint64
}

// WithdrawInput is a decoded withdraw user input.
type WithdrawInput struct {
	Token    common.Address
	Quantity uint64
}

// DecodeUserInputWhat returns the leading what-tag of a user input blob.
func DecodeUserInputWhat(blob []byte) (byte, error) {
	if len(blob) < 1 {
		return 0, ErrShortBuffer
	}
	return blob[0], nil
}

func DecodeNewOrder(blob []byte) (NewOrderInput, error) {
	// what(1) + symbol(10) + side(1) + quantity(8) + price(8)
	if len(blob) != 1+10+1+8+8 {
		return NewOrderInput{}, ErrShortBuffer
	}
	body := blob[1:]
	return NewOrderInput{
		Symbol:   decodeSymbol(body[0:10]),
		Side:     body[10],
		Quantity: binary.LittleEndian.Uint64(body[11:19]),
		Price:    binary.LittleEndian.Uint64(body[19:27]),
	}, nil
}

func DecodeCancelOrder(blob []byte) (CancelOrderInput, error) {
	// what(1) + id(8)
	if len(blob) != 1+8 {
		return CancelOrderInput{}, ErrShortBuffer
	}
	return CancelOrderInput{ID: binary.LittleEndian.Uint64(blob[1:9])}, nil
}

// BookQuery is a decoded 'B'-tagged inspect query.
type BookQuery struct {
	Symbol string
	Depth  uint32
}

// WalletQuery is a decoded 'W'-tagged inspect query.
type WalletQuery struct {
	Trader common.Address
}

func DecodeBookQuery(blob []byte) (BookQuery, error) {
	// what(1) + symbol(10) + depth(4)
	if len(blob) != 1+10+4 {
		return BookQuery{}, ErrShortBuffer
	}
	body := blob[1:]
	return BookQuery{
		Symbol: decodeSymbol(body[0:10]),
		Depth:  binary.LittleEndian.Uint32(body[10:14]),
	}, nil
}

func DecodeWalletQuery(blob []byte) (WalletQuery, error) {
	// what(1) + trader(20)
	if len(blob) != 1+20 {
		return WalletQuery{}, ErrShortBuffer
	}
	var q WalletQuery
	copy(q.Trader[:], blob[1:21])
	return q, nil
}

func DecodeWithdraw(blob []byte) (WithdrawInput, error) {
	// what(1) + token(20) + quantity(8)
	if len(blob) != 1+20+8 {
		return WithdrawInput{}, ErrShortBuffer
	}
	var w WithdrawInput
	copy(w.Token[:], blob[1:21])
	w.Quantity = binary.LittleEndian.Uint64(blob[21:29])
	return w, nil
}

// ExecutionNoticeView is the decoded form of an 'E'-tagged notice, for
// host backends that need to present notices as structured data (JSON
// responses, human-readable replay logs) rather than ship the raw bytes
// straight through.
type ExecutionNoticeView struct {
	Trader   common.Address
	Event    byte
	ID       uint64
	Symbol   string
	Side     byte
	Quantity uint64
	Price    uint64
}

// WalletNoticeView is the decoded form of a 'D' or 'W' tagged notice.
type WalletNoticeView struct {
	Withdraw bool
	Trader   common.Address
	Token    common.Address
	Quantity uint64
}

// DecodeExecutionNotice parses an 'E'-tagged notice blob produced by
// EncodeExecutionNotice.
func DecodeExecutionNotice(blob []byte) (ExecutionNoticeView, error) {
	const want = 1 + 20 + 1 + 8 + 10 + 1 + 8 + 8
	if len(blob) != want || blob[0] != NoticeExecution {
		return ExecutionNoticeView{}, ErrShortBuffer
	}
	var v ExecutionNoticeView
	copy(v.Trader[:], blob[1:21])
	v.Event = blob[21]
	v.ID = binary.LittleEndian.Uint64(blob[22:30])
	v.Symbol = decodeSymbol(blob[30:40])
	v.Side = blob[40]
	v.Quantity = binary.LittleEndian.Uint64(blob[41:49])
	v.Price = binary.LittleEndian.Uint64(blob[49:57])
	return v, nil
}

// DecodeWalletNotice parses a 'D' or 'W' tagged notice blob produced by
// EncodeWalletNotice.
func DecodeWalletNotice(blob []byte) (WalletNoticeView, error) {
	const want = 1 + 20 + 20 + 8
	if len(blob) != want || (blob[0] != NoticeDeposit && blob[0] != NoticeWithdraw) {
		return WalletNoticeView{}, ErrShortBuffer
	}
	var v WalletNoticeView
	v.Withdraw = blob[0] == NoticeWithdraw
	copy(v.Trader[:], blob[1:21])
	copy(v.Token[:], blob[21:41])
	v.Quantity = binary.LittleEndian.Uint64(blob[41:49])
	return v, nil
}

// DecodeBookReport parses a 'B'-tagged inspect report produced by
// EncodeBookReport.
func DecodeBookReport(blob []byte) (string, []BookReportEntry, error) {
	if len(blob) < 1+10+4 || blob[0] != QueryBook {
		return "", nil, ErrShortBuffer
	}
	symbol := decodeSymbol(blob[1:11])
	count := binary.LittleEndian.Uint32(blob[11:15])
	off := 15
	entries := make([]BookReportEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+25 > len(blob) {
			return "", nil, ErrShortBuffer
		}
		entries = append(entries, BookReportEntry{
			ID:       binary.LittleEndian.Uint64(blob[off : off+8]),
			Side:     blob[off+8],
			Price:    binary.LittleEndian.Uint64(blob[off+9 : off+17]),
			Quantity: binary.LittleEndian.Uint64(blob[off+17 : off+25]),
		})
		off += 25
	}
	return symbol, entries, nil
}

// DecodeWalletReport parses a 'W'-tagged inspect report produced by
// EncodeWalletReport.
func DecodeWalletReport(blob []byte) ([]WalletReportEntry, error) {
	if len(blob) < 1+4 || blob[0] != QueryWallet {
		return nil, ErrShortBuffer
	}
	count := binary.LittleEndian.Uint32(blob[1:5])
	off := 5
	entries := make([]WalletReportEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+28 > len(blob) {
			return nil, ErrShortBuffer
		}
		var e WalletReportEntry
		copy(e.Token[:], blob[off:off+20])
		e.Balance = binary.LittleEndian.Uint64(blob[off+20 : off+28])
		entries = append(entries, e)
		off += 28
	}
	return entries, nil
}
