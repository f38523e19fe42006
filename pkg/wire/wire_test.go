package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestDecodeDepositExactLength(t *testing.T) {
	blob := make([]byte, DepositLength)
	blob[0] = DepositStatusSuccessful
	token := common.HexToAddress("0x01")
	sender := common.HexToAddress("0x02")
	copy(blob[1:21], token[:])
	copy(blob[21:41], sender[:])
	binary.BigEndian.PutUint64(blob[41+24:41+32], 1_000_000)

	d, err := DecodeDeposit(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !d.Status || d.Token != token || d.Sender != sender || d.Amount != 1_000_000 {
		t.Fatalf("unexpected deposit: %+v", d)
	}

	if _, err := DecodeDeposit(blob[:DepositLength-1]); err != ErrShortBuffer {
		t.Fatalf("expected ErrShortBuffer for truncated deposit, got %v", err)
	}
}

func TestSymbolRoundTrip(t *testing.T) {
	buf := make([]byte, 10)
	if err := encodeSymbol(buf, "BTC/USDT"); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := decodeSymbol(buf); got != "BTC/USDT" {
		t.Fatalf("got %q, want BTC/USDT", got)
	}

	if err := encodeSymbol(buf, "TOOLONGSYM"); err != nil {
		t.Fatalf("10-byte symbol should fit exactly: %v", err)
	}
	if err := encodeSymbol(buf, "WAYTOOLONGSYMBOL"); err != ErrSymbolTooLong {
		t.Fatalf("expected ErrSymbolTooLong, got %v", err)
	}
}

func TestDecodeNewOrderRoundTrip(t *testing.T) {
	blob := make([]byte, 1+10+1+8+8)
	blob[0] = WhatNewOrder
	copy(blob[1:11], "BTC/USDT")
	blob[11] = SideBuy
	binary.LittleEndian.PutUint64(blob[12:20], 100)
	binary.LittleEndian.PutUint64(blob[20:28], 12000)

	in, err := DecodeNewOrder(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Symbol != "BTC/USDT" || in.Side != SideBuy || in.Quantity != 100 || in.Price != 12000 {
		t.Fatalf("unexpected decode: %+v", in)
	}
}

func TestEncodeExecutionNoticeLayout(t *testing.T) {
	trader := common.HexToAddress("0xAA")
	buf, err := EncodeExecutionNotice(trader, NoticeExecution, 7, "BTC/USDT", SideBuy, 10, 110)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf[0] != NoticeExecution {
		t.Fatalf("tag = %c, want E", buf[0])
	}
	if !bytes.Equal(buf[1:21], trader[:]) {
		t.Fatal("trader mismatch")
	}
	if buf[21] != NoticeExecution {
		t.Fatalf("event = %c, want E", buf[21])
	}
	if id := binary.LittleEndian.Uint64(buf[22:30]); id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
}

func TestEncodeBookReportCapsAtMaxBookEntry(t *testing.T) {
	entries := make([]BookReportEntry, MaxBookEntry+10)
	buf, err := EncodeBookReport("BTC/USDT", entries)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	count := binary.LittleEndian.Uint32(buf[11:15])
	if count != MaxBookEntry {
		t.Fatalf("entry count = %d, want %d", count, MaxBookEntry)
	}
}

func TestEncodeWalletReportCapsAtMaxWalletEntry(t *testing.T) {
	entries := make([]WalletReportEntry, MaxWalletEntry+5)
	buf := EncodeWalletReport(entries)
	count := binary.LittleEndian.Uint32(buf[1:5])
	if count != MaxWalletEntry {
		t.Fatalf("entry count = %d, want %d", count, MaxWalletEntry)
	}
}

func TestDecodeExecutionNoticeRoundTrip(t *testing.T) {
	trader := common.HexToAddress("0xBB")
	buf, err := EncodeExecutionNotice(trader, NoticeExecution, 42, "BTC/USDT", SideSell, 5, 1234)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	v, err := DecodeExecutionNotice(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Trader != trader || v.Event != NoticeExecution || v.ID != 42 || v.Symbol != "BTC/USDT" ||
		v.Side != SideSell || v.Quantity != 5 || v.Price != 1234 {
		t.Fatalf("unexpected round trip: %+v", v)
	}
}

func TestDecodeWalletNoticeRoundTrip(t *testing.T) {
	trader := common.HexToAddress("0xCC")
	token := common.HexToAddress("0xDD")
	buf := EncodeWalletNotice(true, trader, token, 777)
	v, err := DecodeWalletNotice(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !v.Withdraw || v.Trader != trader || v.Token != token || v.Quantity != 777 {
		t.Fatalf("unexpected round trip: %+v", v)
	}
}

func TestDecodeBookReportRoundTrip(t *testing.T) {
	entries := []BookReportEntry{
		{ID: 1, Side: SideBuy, Price: 100, Quantity: 10},
		{ID: 2, Side: SideBuy, Price: 90, Quantity: 20},
	}
	buf, err := EncodeBookReport("BTC/USDT", entries)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	symbol, got, err := DecodeBookReport(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if symbol != "BTC/USDT" || len(got) != 2 || got[0] != entries[0] || got[1] != entries[1] {
		t.Fatalf("unexpected round trip: %q %+v", symbol, got)
	}
}

func TestEncodeBookQueryRoundTrip(t *testing.T) {
	buf, err := EncodeBookQuery("BTC/USDT", 32)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	q, err := DecodeBookQuery(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Symbol != "BTC/USDT" || q.Depth != 32 {
		t.Fatalf("unexpected round trip: %+v", q)
	}
}

func TestEncodeWalletQueryRoundTrip(t *testing.T) {
	trader := common.HexToAddress("0xEE")
	buf := EncodeWalletQuery(trader)
	q, err := DecodeWalletQuery(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.Trader != trader {
		t.Fatalf("unexpected round trip: %+v", q)
	}
}

func TestDecodeWalletReportRoundTrip(t *testing.T) {
	entries := []WalletReportEntry{
		{Token: common.HexToAddress("0x01"), Balance: 500},
	}
	buf := EncodeWalletReport(entries)
	got, err := DecodeWalletReport(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0] != entries[0] {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}
