package exchange

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	st := newTestState()
	st.Deposit(traderA, usd, 1_000_000)
	st.NewOrder(NewOrderInput{Trader: addrBytes(traderA), Symbol: "BTC/USDT", Side: Buy, Quantity: 10, Price: 50})

	data, err := st.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored, err := Restore(data)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if got := restored.Wallets.Balance(traderA, usd); got != 1_000_000-5 {
		t.Fatalf("restored balance = %d, want %d", got, 1_000_000-5)
	}

	book, ok := restored.Books.Get("BTC/USDT")
	if !ok || len(book.Bids.entries()) != 1 || book.Bids.entries()[0].Quantity != 10 {
		t.Fatalf("restored book mismatch: %+v", book)
	}

	data2, err := restored.Snapshot()
	if err != nil {
		t.Fatalf("re-snapshot: %v", err)
	}
	if len(data2) == 0 {
		t.Fatal("expected non-empty re-snapshot")
	}
}

func TestWalletSnapshotUnknownTraderIsEmpty(t *testing.T) {
	st := newTestState()
	snap := st.Wallets.Snapshot(common.HexToAddress("0xDEAD"), 16)
	if snap != nil {
		t.Fatalf("expected nil/empty snapshot for unknown trader, got %+v", snap)
	}
}

func TestWalletSnapshotSortedAndCapped(t *testing.T) {
	st := newTestState()
	st.Wallets.Credit(traderA, common.HexToAddress("0x03"), 1)
	st.Wallets.Credit(traderA, common.HexToAddress("0x01"), 1)
	st.Wallets.Credit(traderA, common.HexToAddress("0x02"), 1)

	snap := st.Wallets.Snapshot(traderA, 2)
	if len(snap) != 2 {
		t.Fatalf("expected snapshot capped at 2, got %d", len(snap))
	}
	if snap[0].Token.Cmp(snap[1].Token) >= 0 {
		t.Fatalf("expected token-sorted order, got %+v", snap)
	}
}
