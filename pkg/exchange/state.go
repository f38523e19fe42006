package exchange

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// State is the root object: "{instruments, books, wallets, next_id}"
// entirely embedded in the persistent arena. The root state exclusively
// owns every instrument, wallet, book, and order record it reaches;
// there are no cross-references between state entities.
type State struct {
	Registry *Registry
	Wallets  *WalletStore
	Books    *BookStore
	seq      uint64
}

// NewState bootstraps a fresh root state from a genesis instrument set.
func NewState(genesis []Instrument) *State {
	return &State{
		Registry: NewRegistry(genesis),
		Wallets:  NewWalletStore(),
		Books:    NewBookStore(),
	}
}

// nextID assigns the next monotonically increasing order id, matching
// the source's get_next_id().
func (st *State) nextID() uint64 {
	st.seq++
	return st.seq
}

func addressFromBytes(b [20]byte) common.Address {
	return common.Address(b)
}

// Deposit credits a trader's wallet from a successful ERC-20 portal
// deposit and returns the wallet_deposit notice (§4.F.1). Deposits never
// fail once they reach this call: the portal-sender and status checks
// happen in the dispatcher.
func (st *State) Deposit(trader, token common.Address, amount uint64) Notice {
	st.Wallets.Credit(trader, token, amount)
	return WalletNotice{Trader: trader, Token: token, Quantity: amount, Withdraw: false}
}

// Withdraw debits a trader's wallet if sufficient balance is present and
// reports whether the withdrawal succeeded. On success the caller is
// responsible for building the ERC-20 transfer voucher; on failure this
// additionally returns a rejection notice rather than silently dropping
// the request, so a caller watching the notice stream can observe the
// rejection instead of inferring it from voucher absence.
func (st *State) Withdraw(trader, token common.Address, amount uint64) (ok bool, notice Notice) {
	if st.Wallets.Balance(trader, token) < amount {
		return false, ExecutionNotice{
			Trader: trader, Event: EventRejectionInsufficientWithdraw,
			ID: 0, Symbol: "", Side: Buy, Quantity: amount, Price: 0,
		}
	}
	st.Wallets.Debit(trader, token, amount)
	return true, WalletNotice{Trader: trader, Token: token, Quantity: amount, Withdraw: true}
}

// Cancel is the accepted no-op stub (§4.F.3, §9 Q2): it acknowledges the
// input but performs no book mutation and returns no substantive notice.
func (st *State) Cancel(id uint64) {
	_ = id
}

// --- snapshotting (arena-relative, not pointer-relative; see SPEC_FULL.md §4.A) ---

type balanceSnapshot struct {
	Token   common.Address
	Balance uint64
}

type walletSnapshot struct {
	Trader   common.Address
	Balances []balanceSnapshot
}

type orderSnapshot struct {
	ID       uint64
	Trader   common.Address
	Side     Side
	Price    uint64
	Quantity uint64
}

type bookSnapshot struct {
	Symbol string
	Bids   []orderSnapshot
	Asks   []orderSnapshot
}

type rootSnapshot struct {
	Instruments []Instrument
	Wallets     []walletSnapshot
	Books       []bookSnapshot
	NextID      uint64
}

// Snapshot encodes the full root state as a flat, self-contained byte
// image: every instrument, wallet balance, and resting order, plus the
// id counter. Re-decoding this image reproduces byte-for-byte identical
// externally observable state, satisfying the restart-idempotence
// property without relying on address-stable pointers.
func (st *State) Snapshot() ([]byte, error) {
	instruments := st.Registry.All()
	sort.Slice(instruments, func(i, j int) bool { return instruments[i].Symbol < instruments[j].Symbol })
	snap := rootSnapshot{Instruments: instruments, NextID: st.seq}

	for trader, w := range st.Wallets.wallets {
		ws := walletSnapshot{Trader: trader, Balances: make([]balanceSnapshot, 0, len(w.balances))}
		for tok, bal := range w.balances {
			ws.Balances = append(ws.Balances, balanceSnapshot{Token: tok, Balance: bal})
		}
		sort.Slice(ws.Balances, func(i, j int) bool { return ws.Balances[i].Token.Cmp(ws.Balances[j].Token) < 0 })
		snap.Wallets = append(snap.Wallets, ws)
	}
	sort.Slice(snap.Wallets, func(i, j int) bool { return snap.Wallets[i].Trader.Cmp(snap.Wallets[j].Trader) < 0 })

	for symbol, book := range st.Books.books {
		bs := bookSnapshot{Symbol: symbol}
		for _, o := range book.Bids.entries() {
			bs.Bids = append(bs.Bids, orderSnapshot{ID: o.ID, Trader: o.Trader, Side: o.Side, Price: o.Price, Quantity: o.Quantity})
		}
		for _, o := range book.Asks.entries() {
			bs.Asks = append(bs.Asks, orderSnapshot{ID: o.ID, Trader: o.Trader, Side: o.Side, Price: o.Price, Quantity: o.Quantity})
		}
		snap.Books = append(snap.Books, bs)
	}
	sort.Slice(snap.Books, func(i, j int) bool { return snap.Books[i].Symbol < snap.Books[j].Symbol })

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore rebuilds a root state from a Snapshot image.
func Restore(data []byte) (*State, error) {
	var snap rootSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, err
	}

	st := &State{
		Registry: NewRegistry(snap.Instruments),
		Wallets:  NewWalletStore(),
		Books:    NewBookStore(),
		seq:      snap.NextID,
	}

	for _, ws := range snap.Wallets {
		w := newWallet()
		for _, b := range ws.Balances {
			w.balances[b.Token] = b.Balance
		}
		st.Wallets.wallets[ws.Trader] = w
	}

	for _, bs := range snap.Books {
		book := st.Books.GetOrCreate(bs.Symbol)
		for _, os := range bs.Bids {
			book.Bids.insert(&Order{ID: os.ID, Trader: os.Trader, Symbol: bs.Symbol, Side: os.Side, Price: os.Price, Quantity: os.Quantity})
		}
		for _, os := range bs.Asks {
			book.Asks.insert(&Order{ID: os.ID, Trader: os.Trader, Symbol: bs.Symbol, Side: os.Side, Price: os.Price, Quantity: os.Quantity})
		}
	}

	return st, nil
}
