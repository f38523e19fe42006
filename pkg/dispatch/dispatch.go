// Package dispatch implements the advance and inspect dispatchers: the
// state machine that routes a raw input blob to one of the four advance
// handlers or one of the two inspect handlers, and that owns the
// commit-barrier/read-lock discipline around the single mutable
// exchange.State.
package dispatch

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/lambadex/lambadex/pkg/arena"
	"github.com/lambadex/lambadex/pkg/erc20"
	"github.com/lambadex/lambadex/pkg/exchange"
	"github.com/lambadex/lambadex/pkg/wire"
)

// Dispatcher holds the single mutable root state plus the arena it is
// snapshotted into after every advance. Advances take the write lock;
// inspects take a read lock, per the concurrency model (§5): the kernel
// itself has no internal locking, but a JSON-RPC host serving inspects
// concurrently with advances needs this boundary.
type Dispatcher struct {
	mu     sync.RWMutex
	state  *exchange.State
	arena  *arena.Arena
	portal common.Address
	log    *zap.SugaredLogger
}

func New(state *exchange.State, a *arena.Arena, portal common.Address, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{state: state, arena: a, portal: portal, log: log}
}

// Result is everything one advance call produced, in emission order.
type Result struct {
	Notices  [][]byte
	Vouchers []exchange.Voucher
}

// Advance routes one raw input blob per the routing rule in §4.F: a
// deposit if it came from the portal and matches the deposit length,
// otherwise a user input dispatched on its leading what-tag. Every call
// concludes with a commit barrier, win or lose, matching the invariant
// that a rejected or malformed input leaves state exactly as it found it
// only up to the point of its own internal checks — no allocation from a
// failed handler survives into the snapshot.
func (d *Dispatcher) Advance(meta wire.InputMetadata, blob []byte) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res Result
	var err error

	switch {
	case meta.Sender == d.portal && len(blob) == wire.DepositLength:
		res, err = d.advanceDeposit(blob)
	default:
		res, err = d.advanceUserInput(meta, blob)
	}

	if commitErr := d.commit(); commitErr != nil {
		if d.log != nil {
			d.log.Errorw("commit barrier failed", "err", commitErr)
		}
		return Result{}, commitErr
	}

	return res, err
}

func (d *Dispatcher) advanceDeposit(blob []byte) (Result, error) {
	dep, err := wire.DecodeDeposit(blob)
	if err != nil {
		return Result{}, err
	}
	if !dep.Status {
		if d.log != nil {
			d.log.Infow("deposit rejected: unsuccessful status", "token", dep.Token, "sender", dep.Sender)
		}
		return Result{}, nil
	}

	notice := d.state.Deposit(dep.Sender, dep.Token, dep.Amount)
	wn := notice.(exchange.WalletNotice)
	nbytes := wire.EncodeWalletNotice(false, wn.Trader, wn.Token, wn.Quantity)
	return Result{Notices: [][]byte{nbytes}}, nil
}

func (d *Dispatcher) advanceUserInput(meta wire.InputMetadata, blob []byte) (Result, error) {
	what, err := wire.DecodeUserInputWhat(blob)
	if err != nil {
		return Result{}, err
	}

	switch what {
	case wire.WhatNewOrder:
		in, err := wire.DecodeNewOrder(blob)
		if err != nil {
			return Result{}, err
		}
		side := exchange.Buy
		if in.Side == wire.SideSell {
			side = exchange.Sell
		}
		var traderBytes [20]byte
		copy(traderBytes[:], meta.Sender[:])
		notices := d.state.NewOrder(exchange.NewOrderInput{
			Trader: traderBytes, Symbol: in.Symbol, Side: side,
			Quantity: in.Quantity, Price: in.Price,
		})
		out := make([][]byte, 0, len(notices))
		for _, n := range notices {
			b, err := encodeNotice(n)
			if err != nil {
				return Result{}, err
			}
			out = append(out, b)
		}
		return Result{Notices: out}, nil

	case wire.WhatCancelOrder:
		in, err := wire.DecodeCancelOrder(blob)
		if err != nil {
			return Result{}, err
		}
		d.state.Cancel(in.ID)
		return Result{}, nil

	case wire.WhatWithdraw:
		in, err := wire.DecodeWithdraw(blob)
		if err != nil {
			return Result{}, err
		}
		ok, notice := d.state.Withdraw(meta.Sender, in.Token, in.Quantity)
		nbytes, err := encodeNotice(notice)
		if err != nil {
			return Result{}, err
		}
		res := Result{Notices: [][]byte{nbytes}}
		if ok {
			res.Vouchers = []exchange.Voucher{{
				Destination: in.Token,
				Payload:     erc20.EncodeTransfer(meta.Sender, in.Quantity),
			}}
		}
		return res, nil

	default:
		return Result{}, fmt.Errorf("%w: %q", wire.ErrUnknownWhat, what)
	}
}

func encodeNotice(n exchange.Notice) ([]byte, error) {
	switch v := n.(type) {
	case exchange.ExecutionNotice:
		side := wire.SideBuy
		if v.Side == exchange.Sell {
			side = wire.SideSell
		}
		return wire.EncodeExecutionNotice(v.Trader, byte(v.Event), v.ID, v.Symbol, side, v.Quantity, v.Price)
	case exchange.WalletNotice:
		return wire.EncodeWalletNotice(v.Withdraw, v.Trader, v.Token, v.Quantity), nil
	default:
		return nil, fmt.Errorf("dispatch: unknown notice type %T", n)
	}
}

func (d *Dispatcher) commit() error {
	if d.arena == nil {
		return nil
	}
	data, err := d.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return d.arena.CommitSnapshot(data)
}

// Inspect runs a read-only book or wallet query and returns the encoded
// report. Inspects never allocate in the arena and never mutate state.
func (d *Dispatcher) Inspect(blob []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(blob) < 1 {
		return nil, wire.ErrShortBuffer
	}
	switch blob[0] {
	case wire.QueryBook:
		q, err := wire.DecodeBookQuery(blob)
		if err != nil {
			return nil, err
		}
		depth := int(q.Depth)
		if depth > wire.MaxBookEntry {
			depth = wire.MaxBookEntry
		}
		var reportEntries []wire.BookReportEntry
		if book, ok := d.state.Books.Get(q.Symbol); ok {
			for _, e := range book.DepthQuery(depth) {
				side := wire.SideBuy
				if e.Side == exchange.Sell {
					side = wire.SideSell
				}
				reportEntries = append(reportEntries, wire.BookReportEntry{
					ID: e.ID, Side: side, Price: e.Price, Quantity: e.Quantity,
				})
			}
		}
		return wire.EncodeBookReport(q.Symbol, reportEntries)

	case wire.QueryWallet:
		q, err := wire.DecodeWalletQuery(blob)
		if err != nil {
			return nil, err
		}
		snap := d.state.Wallets.Snapshot(q.Trader, wire.MaxWalletEntry)
		entries := make([]wire.WalletReportEntry, len(snap))
		for i, e := range snap {
			entries[i] = wire.WalletReportEntry{Token: e.Token, Balance: e.Balance}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Token.Cmp(entries[j].Token) < 0 })
		return wire.EncodeWalletReport(entries), nil

	default:
		return nil, fmt.Errorf("%w: %q", wire.ErrUnknownWhat, blob[0])
	}
}
