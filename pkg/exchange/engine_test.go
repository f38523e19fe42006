package exchange

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	btc = common.HexToAddress("0x3333333333333333333333333333333333333C")
	usd = common.HexToAddress("0x9999999999999999999999999999999999999C")

	traderA = common.HexToAddress("0xA000000000000000000000000000000000000A")
	traderB = common.HexToAddress("0xB000000000000000000000000000000000000B")
)

func newTestState() *State {
	return NewState([]Instrument{{Symbol: "BTC/USDT", Base: btc, Quote: usd}})
}

func addrBytes(a common.Address) [20]byte {
	var b [20]byte
	copy(b[:], a[:])
	return b
}

// S1: deposits and wallet snapshot.
func TestScenarioDepositAndWalletSnapshot(t *testing.T) {
	st := newTestState()

	n1 := st.Deposit(traderA, usd, 1_000_000)
	n2 := st.Deposit(traderB, btc, 1_000_000)

	if wn, ok := n1.(WalletNotice); !ok || wn.Withdraw {
		t.Fatalf("expected deposit notice for A, got %#v", n1)
	}
	if wn, ok := n2.(WalletNotice); !ok || wn.Withdraw {
		t.Fatalf("expected deposit notice for B, got %#v", n2)
	}

	snap := st.Wallets.Snapshot(traderA, 16)
	if len(snap) != 1 || snap[0].Token != usd || snap[0].Balance != 1_000_000 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

// S2: cross-matching at mid-price.
func TestScenarioCrossMatchMidPrice(t *testing.T) {
	st := newTestState()
	st.Deposit(traderA, usd, 1_000_000)
	st.Deposit(traderB, btc, 1_000_000)

	aNotices := st.NewOrder(NewOrderInput{Trader: addrBytes(traderA), Symbol: "BTC/USDT", Side: Buy, Quantity: 100, Price: 120})
	if len(aNotices) != 1 {
		t.Fatalf("expected exactly one notice for A's resting buy, got %d: %+v", len(aNotices), aNotices)
	}

	bNotices := st.NewOrder(NewOrderInput{Trader: addrBytes(traderB), Symbol: "BTC/USDT", Side: Sell, Quantity: 100, Price: 100})
	if len(bNotices) != 3 {
		t.Fatalf("expected new_order ack + two executions for B, got %d: %+v", len(bNotices), bNotices)
	}
	for _, n := range bNotices[1:] {
		en := n.(ExecutionNotice)
		if en.Event != EventExecution || en.Quantity != 100 || en.Price != 110 {
			t.Fatalf("unexpected execution notice: %+v", en)
		}
	}

	if got := st.Wallets.Balance(traderA, usd); got != 999_890 {
		t.Fatalf("A USDT balance = %d, want 999890", got)
	}
	if got := st.Wallets.Balance(traderA, btc); got != 100 {
		t.Fatalf("A BTC balance = %d, want 100", got)
	}
	if got := st.Wallets.Balance(traderB, btc); got != 999_900 {
		t.Fatalf("B BTC balance = %d, want 999900", got)
	}
	if got := st.Wallets.Balance(traderB, usd); got != 110 {
		t.Fatalf("B USDT balance = %d, want 110", got)
	}
}

// S3: partial fill leaves a residual on the book.
func TestScenarioPartialFillResidual(t *testing.T) {
	st := NewState([]Instrument{{Symbol: "X/Y", Base: btc, Quote: usd}})
	st.Deposit(traderA, btc, 1000)
	st.Deposit(traderB, usd, 100_000)

	st.NewOrder(NewOrderInput{Trader: addrBytes(traderA), Symbol: "X/Y", Side: Sell, Quantity: 50, Price: 100})
	notices := st.NewOrder(NewOrderInput{Trader: addrBytes(traderB), Symbol: "X/Y", Side: Buy, Quantity: 100, Price: 100})

	var execs int
	for _, n := range notices {
		if en, ok := n.(ExecutionNotice); ok && en.Event == EventExecution {
			execs++
			if en.Quantity != 50 || en.Price != 100 {
				t.Fatalf("unexpected execution: %+v", en)
			}
		}
	}
	if execs != 2 {
		t.Fatalf("expected 2 execution notices, got %d", execs)
	}

	book, ok := st.Books.Get("X/Y")
	if !ok {
		t.Fatal("expected book to exist")
	}
	bids := book.Bids.entries()
	if len(bids) != 1 || bids[0].Quantity != 50 || bids[0].Trader != traderB {
		t.Fatalf("expected residual buy of 50 for B, got %+v", bids)
	}
}

// S4: invalid symbol rejection.
func TestScenarioInvalidSymbolRejection(t *testing.T) {
	st := newTestState()
	notices := st.NewOrder(NewOrderInput{Trader: addrBytes(traderA), Symbol: "NOPE/USDT", Side: Buy, Quantity: 1, Price: 1})
	if len(notices) != 1 {
		t.Fatalf("expected one notice, got %d", len(notices))
	}
	en, ok := notices[0].(ExecutionNotice)
	if !ok || en.Event != EventRejectionInvalidSymbol {
		t.Fatalf("expected rejection_invalid_symbol, got %+v", notices[0])
	}
	if st.Wallets.Balance(traderA, usd) != 0 {
		t.Fatal("no wallet mutation expected on invalid symbol rejection")
	}
}

// S5: insufficient funds rejection.
func TestScenarioInsufficientFundsRejection(t *testing.T) {
	st := newTestState()
	notices := st.NewOrder(NewOrderInput{Trader: addrBytes(traderA), Symbol: "BTC/USDT", Side: Buy, Quantity: 1, Price: 1})
	if len(notices) != 1 {
		t.Fatalf("expected one notice, got %d", len(notices))
	}
	en, ok := notices[0].(ExecutionNotice)
	if !ok || en.Event != EventRejectionInsufficientFunds {
		t.Fatalf("expected rejection_insufficient_funds, got %+v", notices[0])
	}
}

// S6: withdraw voucher round trip (the voucher itself is built in pkg/erc20;
// this test pins down the wallet-mutation half of the scenario).
func TestScenarioWithdraw(t *testing.T) {
	st := newTestState()
	st.Deposit(traderA, usd, 500)

	ok, notice := st.Withdraw(traderA, usd, 200)
	if !ok {
		t.Fatal("expected withdrawal to succeed")
	}
	wn, isWallet := notice.(WalletNotice)
	if !isWallet || !wn.Withdraw || wn.Quantity != 200 {
		t.Fatalf("unexpected withdraw notice: %+v", notice)
	}
	if got := st.Wallets.Balance(traderA, usd); got != 300 {
		t.Fatalf("balance after withdrawal = %d, want 300", got)
	}
}

func TestWithdrawInsufficientFundsRejectionNotice(t *testing.T) {
	st := newTestState()
	ok, notice := st.Withdraw(traderA, usd, 1)
	if ok {
		t.Fatal("expected withdrawal to fail")
	}
	en, isExec := notice.(ExecutionNotice)
	if !isExec || en.Event != EventRejectionInsufficientWithdraw {
		t.Fatalf("expected rejection_insufficient_withdrawal notice, got %+v", notice)
	}
}

func TestZeroQuantityOrderIsNoopAndNotResting(t *testing.T) {
	st := newTestState()
	st.Deposit(traderA, usd, 1000)

	notices := st.NewOrder(NewOrderInput{Trader: addrBytes(traderA), Symbol: "BTC/USDT", Side: Buy, Quantity: 0, Price: 100})
	if len(notices) != 1 {
		t.Fatalf("expected just the ack notice, got %d", len(notices))
	}
	book, ok := st.Books.Get("BTC/USDT")
	if ok {
		if len(book.Bids.entries()) != 0 {
			t.Fatalf("zero-quantity order must not rest on the book: %+v", book.Bids.entries())
		}
	}
}

func TestExactMatchFillErasesMakerAndTakerDoesNotRest(t *testing.T) {
	st := newTestState()
	st.Deposit(traderA, btc, 10)
	st.Deposit(traderB, usd, 10_000)

	st.NewOrder(NewOrderInput{Trader: addrBytes(traderA), Symbol: "BTC/USDT", Side: Sell, Quantity: 10, Price: 100})
	st.NewOrder(NewOrderInput{Trader: addrBytes(traderB), Symbol: "BTC/USDT", Side: Buy, Quantity: 10, Price: 100})

	book, _ := st.Books.Get("BTC/USDT")
	if len(book.Asks.entries()) != 0 || len(book.Bids.entries()) != 0 {
		t.Fatalf("expected both sides empty after exact match, got bids=%+v asks=%+v", book.Bids.entries(), book.Asks.entries())
	}
}
