package emulator

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambadex/lambadex/pkg/dispatch"
	"github.com/lambadex/lambadex/pkg/exchange"
	"github.com/lambadex/lambadex/pkg/wire"
)

func writeAdvanceFile(t *testing.T, dir string, index uint64, sender common.Address, blob []byte) {
	t.Helper()
	buf := make([]byte, metadataSize+len(blob))
	copy(buf[0:20], sender[:])
	binary.LittleEndian.PutUint64(buf[20:28], 1)  // block_number
	binary.LittleEndian.PutUint64(buf[28:36], 2)  // timestamp
	binary.LittleEndian.PutUint64(buf[36:44], 0)  // epoch_index
	copy(buf[metadataSize:], blob)
	path := filepath.Join(dir, formatName(index, "advance"))
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func formatName(index uint64, kind string) string {
	return string(rune('0'+index%10)) + "." + kind // indices used in this test are all < 10
}

func depositBlob(token, sender common.Address, amount uint64) []byte {
	blob := make([]byte, wire.DepositLength)
	blob[0] = wire.DepositStatusSuccessful
	copy(blob[1:21], token[:])
	copy(blob[21:41], sender[:])
	var amt [32]byte
	binary.BigEndian.PutUint64(amt[24:32], amount)
	copy(blob[41:73], amt[:])
	return blob
}

func TestHarnessReplaysDepositAndWritesNotice(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	portal := common.HexToAddress("0x9C21AEb2093C32DDbC53eeF24B873BDCd1aDa1DB")
	token := common.HexToAddress("0x01")
	trader := common.HexToAddress("0x02")

	writeAdvanceFile(t, inDir, 1, portal, depositBlob(token, trader, 1_000_000))

	st := exchange.NewState([]exchange.Instrument{{Symbol: "BTC/USDT", Base: token, Quote: token}})
	d := dispatch.New(st, nil, portal, nil)

	h := &Harness{Dispatcher: d, InputDir: inDir, OutputDir: outDir}
	if err := h.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	noticePath := filepath.Join(outDir, "1.notice.0")
	data, err := os.ReadFile(noticePath)
	if err != nil {
		t.Fatalf("expected notice file: %v", err)
	}
	view, err := wire.DecodeWalletNotice(data)
	if err != nil {
		t.Fatalf("decode notice: %v", err)
	}
	if view.Withdraw || view.Trader != trader || view.Token != token || view.Quantity != 1_000_000 {
		t.Fatalf("unexpected notice: %+v", view)
	}

	if bal := st.Wallets.Balance(trader, token); bal != 1_000_000 {
		t.Fatalf("balance = %d, want 1000000", bal)
	}
}

func TestHarnessReprocessesEveryFileWithoutJournal(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	portal := common.HexToAddress("0x9C21AEb2093C32DDbC53eeF24B873BDCd1aDa1DB")
	token := common.HexToAddress("0x01")
	trader := common.HexToAddress("0x02")
	writeAdvanceFile(t, inDir, 1, portal, depositBlob(token, trader, 500))

	st := exchange.NewState([]exchange.Instrument{{Symbol: "BTC/USDT", Base: token, Quote: token}})
	d := dispatch.New(st, nil, portal, nil)
	h := &Harness{Dispatcher: d, InputDir: inDir, OutputDir: outDir}
	if err := h.Run(); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := h.Run(); err != nil {
		t.Fatalf("second run: %v", err)
	}
	// No journal configured: every run reprocesses every file, so balance
	// doubles. This pins down the documented behavior that resume-skip
	// only activates once a journal watermark is present.
	if bal := st.Wallets.Balance(trader, token); bal != 1000 {
		t.Fatalf("balance = %d, want 1000 (reprocessed without a journal)", bal)
	}
}
