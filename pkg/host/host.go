// Package host defines the output port contract shared by the three
// interchangeable rollup host backends: the file-replay emulator
// (pkg/host/emulator), the Cartesi kernel device (pkg/host/device), and
// the JSON-RPC/WebSocket server (pkg/host/rpcserver). The exchange
// kernel itself (pkg/dispatch) is oblivious to which backend is driving
// it; each backend's job is to pull raw input blobs from wherever the
// rollup framework delivers them and push the dispatcher's raw output
// blobs back out through this same three-method contract.
package host

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lambadex/lambadex/pkg/dispatch"
)

// Port is the abstract output sink: every advance emits zero or more
// notices and vouchers, in the order produced; every inspect emits
// exactly one report.
type Port interface {
	EmitNotice(payload []byte) error
	EmitVoucher(destination common.Address, payload []byte) error
	EmitReport(payload []byte) error
}

// Voucher mirrors exchange.Voucher without importing pkg/exchange, so
// backends that only need the wire shape (destination + payload) do not
// have to pull in the whole kernel package graph.
type Voucher struct {
	Destination common.Address
	Payload     []byte
}

// EmitAdvanceResult pushes one dispatch.Result through port in emission
// order: every notice, then every voucher. The emulator and rpcserver
// backends push their results through it; the device backend writes
// notices and then vouchers with its own loops, in the same order.
func EmitAdvanceResult(port Port, res dispatch.Result) error {
	for _, n := range res.Notices {
		if err := port.EmitNotice(n); err != nil {
			return fmt.Errorf("host: emit notice: %w", err)
		}
	}
	for _, v := range res.Vouchers {
		if err := port.EmitVoucher(v.Destination, v.Payload); err != nil {
			return fmt.Errorf("host: emit voucher: %w", err)
		}
	}
	return nil
}
