package dispatch

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambadex/lambadex/pkg/arena"
	"github.com/lambadex/lambadex/pkg/exchange"
	"github.com/lambadex/lambadex/pkg/wire"
)

var (
	portal  = common.HexToAddress("0xP0")
	btcAddr = common.HexToAddress("0x3333333333333333333333333333333333333C")
	usdAddr = common.HexToAddress("0x9999999999999999999999999999999999999C")
	trader  = common.HexToAddress("0xA000000000000000000000000000000000000A")
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	st := exchange.NewState([]exchange.Instrument{{Symbol: "BTC/USDT", Base: btcAddr, Quote: usdAddr}})
	a, err := arena.Open(filepath.Join(t.TempDir(), "img"), 0x1000000000, 1<<20, true)
	if err != nil {
		t.Fatalf("open arena: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return New(st, a, portal, nil)
}

func depositBlob(token, sender common.Address, amount uint64) []byte {
	blob := make([]byte, wire.DepositLength)
	blob[0] = wire.DepositStatusSuccessful
	copy(blob[1:21], token[:])
	copy(blob[21:41], sender[:])
	binary.BigEndian.PutUint64(blob[41+24:41+32], amount)
	return blob
}

func TestAdvanceDeposit(t *testing.T) {
	d := newTestDispatcher(t)
	blob := depositBlob(usdAddr, trader, 1_000_000)

	res, err := d.Advance(wire.InputMetadata{Sender: portal}, blob)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(res.Notices) != 1 || res.Notices[0][0] != wire.NoticeDeposit {
		t.Fatalf("unexpected deposit result: %+v", res)
	}
}

func TestAdvanceNewOrderRejectsUnknownSymbol(t *testing.T) {
	d := newTestDispatcher(t)
	blob := make([]byte, 1+10+1+8+8)
	blob[0] = wire.WhatNewOrder
	copy(blob[1:11], "NOPE")
	blob[11] = wire.SideBuy
	binary.LittleEndian.PutUint64(blob[12:20], 1)
	binary.LittleEndian.PutUint64(blob[20:28], 1)

	res, err := d.Advance(wire.InputMetadata{Sender: trader}, blob)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(res.Notices) != 1 || res.Notices[0][0] != wire.NoticeExecution || res.Notices[0][21] != byte('r') {
		t.Fatalf("expected rejection_invalid_symbol notice, got %+v", res)
	}
}

func TestAdvanceWithdrawEmitsVoucher(t *testing.T) {
	d := newTestDispatcher(t)
	d.Advance(wire.InputMetadata{Sender: portal}, depositBlob(usdAddr, trader, 500))

	blob := make([]byte, 1+20+8)
	blob[0] = wire.WhatWithdraw
	copy(blob[1:21], usdAddr[:])
	binary.LittleEndian.PutUint64(blob[21:29], 200)

	res, err := d.Advance(wire.InputMetadata{Sender: trader}, blob)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(res.Vouchers) != 1 || res.Vouchers[0].Destination != usdAddr {
		t.Fatalf("expected one voucher to usdAddr, got %+v", res.Vouchers)
	}
	if res.Vouchers[0].Payload[0] != 0xa9 || res.Vouchers[0].Payload[1] != 0x05 {
		t.Fatalf("unexpected voucher payload: %x", res.Vouchers[0].Payload)
	}
}

func TestAdvanceUnknownWhatFails(t *testing.T) {
	d := newTestDispatcher(t)
	if _, err := d.Advance(wire.InputMetadata{Sender: trader}, []byte{'Z'}); err == nil {
		t.Fatal("expected error for unknown what tag")
	}
}

func TestInspectWalletAndBook(t *testing.T) {
	d := newTestDispatcher(t)
	d.Advance(wire.InputMetadata{Sender: portal}, depositBlob(usdAddr, trader, 1000))

	wq := make([]byte, 1+20)
	wq[0] = wire.QueryWallet
	copy(wq[1:21], trader[:])
	report, err := d.Inspect(wq)
	if err != nil {
		t.Fatalf("inspect wallet: %v", err)
	}
	if report[0] != wire.QueryWallet {
		t.Fatalf("unexpected wallet report tag: %c", report[0])
	}

	bq := make([]byte, 1+10+4)
	bq[0] = wire.QueryBook
	copy(bq[1:11], "BTC/USDT")
	binary.LittleEndian.PutUint32(bq[11:15], 100)
	report, err = d.Inspect(bq)
	if err != nil {
		t.Fatalf("inspect book: %v", err)
	}
	if report[0] != wire.QueryBook {
		t.Fatalf("unexpected book report tag: %c", report[0])
	}
}

func TestCommitBarrierPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "img")

	st := exchange.NewState([]exchange.Instrument{{Symbol: "BTC/USDT", Base: btcAddr, Quote: usdAddr}})
	a, err := arena.Open(imgPath, 0x1000000000, 1<<20, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	d := New(st, a, portal, nil)
	d.Advance(wire.InputMetadata{Sender: portal}, depositBlob(usdAddr, trader, 42))
	a.Close()

	b, err := arena.Open(imgPath, 0x1000000000, 1<<20, false)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	snap := b.LoadSnapshot()
	if len(snap) == 0 {
		t.Fatal("expected non-empty committed snapshot")
	}
	restored, err := exchange.Restore(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := restored.Wallets.Balance(trader, usdAddr); got != 42 {
		t.Fatalf("restored balance = %d, want 42", got)
	}
}
