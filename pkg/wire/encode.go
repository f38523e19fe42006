package wire

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// EncodeBookQuery builds a 'B'-tagged inspect query blob: the inverse of
// DecodeBookQuery, used by host backends that construct inspect requests
// on a caller's behalf (e.g. rpcserver's GET /api/v1/book/{symbol}).
func EncodeBookQuery(symbol string, depth uint32) ([]byte, error) {
	buf := make([]byte, 1+10+4)
	buf[0] = QueryBook
	if err := encodeSymbol(buf[1:11], symbol); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(buf[11:15], depth)
	return buf, nil
}

// EncodeWalletQuery builds a 'W'-tagged inspect query blob: the inverse
// of DecodeWalletQuery.
func EncodeWalletQuery(trader common.Address) []byte {
	buf := make([]byte, 1+20)
	buf[0] = QueryWallet
	copy(buf[1:21], trader[:])
	return buf
}

// EncodeExecutionNotice builds the 'E'-tagged notice: a wire-level event
// byte (new_order ack / execution / one of the rejection kinds) plus the
// shared {trader, id, symbol, side, quantity, price} fields.
func EncodeExecutionNotice(trader common.Address, event byte, id uint64, symbol string, side byte, quantity, price uint64) ([]byte, error) {
	buf := make([]byte, 1+20+1+8+10+1+8+8)
	buf[0] = NoticeExecution
	copy(buf[1:21], trader[:])
	buf[21] = event
	binary.LittleEndian.PutUint64(buf[22:30], id)
	if err := encodeSymbol(buf[30:40], symbol); err != nil {
		return nil, err
	}
	buf[40] = side
	binary.LittleEndian.PutUint64(buf[41:49], quantity)
	binary.LittleEndian.PutUint64(buf[49:57], price)
	return buf, nil
}

// EncodeWalletNotice builds the 'D' (deposit) or 'W' (withdraw) tagged
// {trader, token, quantity} notice.
func EncodeWalletNotice(withdraw bool, trader, token common.Address, quantity uint64) []byte {
	buf := make([]byte, 1+20+20+8)
	if withdraw {
		buf[0] = NoticeWithdraw
	} else {
		buf[0] = NoticeDeposit
	}
	copy(buf[1:21], trader[:])
	copy(buf[21:41], token[:])
	binary.LittleEndian.PutUint64(buf[41:49], quantity)
	return buf
}

// BookReportEntry is one resting-order entry in a book depth report.
type BookReportEntry struct {
	ID       uint64
	Side     byte
	Price    uint64
	Quantity uint64
}

// EncodeBookReport builds a 'B'-tagged report: symbol, entry count, then
// up to MaxBookEntry entries. Entries beyond the cap are silently
// dropped.
func EncodeBookReport(symbol string, entries []BookReportEntry) ([]byte, error) {
	if len(entries) > MaxBookEntry {
		entries = entries[:MaxBookEntry]
	}
	buf := make([]byte, 1+10+4+len(entries)*(8+1+8+8))
	buf[0] = QueryBook
	if err := encodeSymbol(buf[1:11], symbol); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(buf[11:15], uint32(len(entries)))
	off := 15
	for _, e := range entries {
		binary.LittleEndian.PutUint64(buf[off:off+8], e.ID)
		buf[off+8] = e.Side
		binary.LittleEndian.PutUint64(buf[off+9:off+17], e.Price)
		binary.LittleEndian.PutUint64(buf[off+17:off+25], e.Quantity)
		off += 25
	}
	return buf, nil
}

// WalletReportEntry is one (token, balance) pair in a wallet report.
type WalletReportEntry struct {
	Token   common.Address
	Balance uint64
}

// EncodeWalletReport builds a 'W'-tagged report: entry count, then up to
// MaxWalletEntry (token, balance) entries in the order given (the caller
// is responsible for having sorted them). Entries beyond the cap are
// silently dropped.
func EncodeWalletReport(entries []WalletReportEntry) []byte {
	if len(entries) > MaxWalletEntry {
		entries = entries[:MaxWalletEntry]
	}
	buf := make([]byte, 1+4+len(entries)*(20+8))
	buf[0] = QueryWallet
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(entries)))
	off := 5
	for _, e := range entries {
		copy(buf[off:off+20], e.Token[:])
		binary.LittleEndian.PutUint64(buf[off+20:off+28], e.Balance)
		off += 28
	}
	return buf
}
