// Package wire implements the byte-exact packed codecs for every input
// and output blob shape in the external interfaces: deposits, user
// inputs (new_order/cancel_order/withdraw), notices, vouchers, and
// inspect reports. Scalars are little-endian except 256-bit amounts,
// which arrive/leave big-endian, matching the source's packed C structs.
package wire

import "errors"

// What-tags for user inputs (advance requests).
const (
	WhatNewOrder    byte = 'N'
	WhatCancelOrder byte = 'C'
	WhatWithdraw    byte = 'W'
)

// What-tags for notices.
const (
	NoticeExecution byte = 'E'
	NoticeWithdraw  byte = 'W'
	NoticeDeposit   byte = 'D'
)

// What-tags for inspect queries and their reports.
const (
	QueryBook   byte = 'B'
	QueryWallet byte = 'W'
)

// Side tags on the wire.
const (
	SideBuy  byte = 'B'
	SideSell byte = 'S'
)

// Depth/entry caps from the external interfaces.
const (
	MaxBookEntry   = 64
	MaxWalletEntry = 16
)

// DepositLength is the fixed length of a deposit input blob: status(1) +
// token(20) + sender(20) + amount(32).
const DepositLength = 1 + 20 + 20 + 32

// DepositStatusSuccessful is the only status value that results in a
// credit; anything else is a failed-deposit rejection (§4.F.1).
const DepositStatusSuccessful byte = 1

const symbolWidth = 10

var (
	ErrShortBuffer  = errors.New("wire: buffer too short")
	ErrUnknownWhat  = errors.New("wire: unknown what tag")
	ErrSymbolTooLong = errors.New("wire: symbol exceeds 10 bytes")
)

func encodeSymbol(dst []byte, symbol string) error {
	if len(symbol) > symbolWidth {
		return ErrSymbolTooLong
	}
	for i := range dst[:symbolWidth] {
		dst[i] = 0
	}
	copy(dst[:symbolWidth], symbol)
	return nil
}

func decodeSymbol(src []byte) string {
	end := 0
	for end < symbolWidth && src[end] != 0 {
		end++
	}
	return string(src[:end])
}
