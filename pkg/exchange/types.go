// Package exchange implements the exchange kernel: the instrument
// registry, wallet store, book store, and matching engine that together
// make up the root state held in the persistent arena.
package exchange

import "github.com/ethereum/go-ethereum/common"

// Side is which side of a book an order rests on.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Scale is the implicit fixed-point scale for every monetary quantity:
// an on-wire value of 12345 means 123.45.
const Scale = 100

// Instrument is an immutable (base, quote) token pair.
type Instrument struct {
	Symbol string
	Base   common.Address
	Quote  common.Address
}

// Order is a resting or in-flight limit order. Quantity is always the
// remaining quantity: it decreases on fills and the order is filled when
// it reaches zero.
type Order struct {
	ID       uint64
	Trader   common.Address
	Symbol   string
	Side     Side
	Price    uint64
	Quantity uint64
}
