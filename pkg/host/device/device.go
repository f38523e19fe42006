// Package device implements the Cartesi rollup kernel-device host
// backend: one of three interchangeable transports (the others are the
// file-replay emulator, pkg/host/emulator, and the JSON-RPC server,
// pkg/host/rpcserver). Inside the rollup execution environment the
// kernel exposes a character device (conventionally /dev/rollup) that
// this process drives with a small, fixed set of ioctl requests: finish
// the previous request and block for the next one, read the pending
// advance/inspect payload, and write notices, vouchers, and reports for
// the one currently being processed.
//
// The ioctl command numbers below are derived the same way the kernel
// header does, via the standard Linux _IOC encoding, rather than
// hand-guessed.
package device

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/lambadex/lambadex/pkg/dispatch"
	"github.com/lambadex/lambadex/pkg/wire"
)

// Linux _IOC encoding (include/uapi/asm-generic/ioctl.h): the direction,
// type ("magic"), request number, and argument size are packed into one
// 32-bit command word. golang.org/x/sys/unix does not expose a generic
// _IOWR helper, so it is reproduced here exactly.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNrShift) | (size << iocSizeShift)
}

func iowr(typ, nr byte, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, uintptr(typ), uintptr(nr), size)
}

// rollupDeviceMagic is the driver's ioctl "type" byte.
const rollupDeviceMagic = 0xd3

// Request kinds the finish ioctl reports back.
const (
	requestAdvanceState = 0
	requestInspectState = 1
)

// on-the-wire struct sizes for the fixed-size portion of each ioctl
// payload; the variable-length data that follows lives in a
// process-owned buffer the kernel copies into/out of, matching the
// driver's "data is a separate pointer, not inline" convention.
const (
	sizeofRollupFinish        = 8  // accept_previous_request(4) + next_request_type(4)
	sizeofRollupAdvanceHeader = 72 // sender(20, padded to 24) + 4*metadata(8) + dataPtr(8) + length(8)
	sizeofRollupInspectHeader = 16 // dataPtr(8) + length(8)
	sizeofRollupNotice        = 16 // dataPtr(8) + length(8)
	sizeofRollupVoucher       = 48 // destination(32, padded) + dataPtr(8) + length(8)
	sizeofRollupReport        = 16 // dataPtr(8) + length(8)
)

var (
	ioctlFinish        = iowr(rollupDeviceMagic, 0, sizeofRollupFinish)
	ioctlReadAdvance    = iowr(rollupDeviceMagic, 1, sizeofRollupAdvanceHeader)
	ioctlReadInspect    = iowr(rollupDeviceMagic, 2, sizeofRollupInspectHeader)
	ioctlWriteVoucher   = iowr(rollupDeviceMagic, 3, sizeofRollupVoucher)
	ioctlWriteNotice    = iowr(rollupDeviceMagic, 4, sizeofRollupNotice)
	ioctlWriteReport    = iowr(rollupDeviceMagic, 5, sizeofRollupReport)
)

const maxPayload = 2 << 20 // 2MiB, generous ceiling for one advance/inspect payload

// Backend drives a dispatcher from the Cartesi rollup kernel device.
type Backend struct {
	Dispatcher *dispatch.Dispatcher
	DevicePath string // defaults to /dev/rollup
	Log        *zap.SugaredLogger
}

func (b *Backend) path() string {
	if b.DevicePath == "" {
		return "/dev/rollup"
	}
	return b.DevicePath
}

// rollupFinish is the fixed-size struct passed to IOCTL_ROLLUP_FINISH:
// on the way in it tells the driver whether the previous request was
// accepted; on the way out it reports whether the next pending request
// is an advance or an inspect.
type rollupFinish struct {
	acceptPreviousRequest int32
	nextRequestType       int32
}

// Run opens the rollup device and services requests until ctx-equivalent
// shutdown (the device itself blocks in the FINISH ioctl between
// requests, so there is no separate poll loop to write).
func (b *Backend) Run() error {
	f, err := os.OpenFile(b.path(), os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("device: open %s: %w", b.path(), err)
	}
	defer f.Close()
	fd := f.Fd()

	accept := true
	for {
		reqType, err := b.finish(fd, accept)
		if err != nil {
			return fmt.Errorf("device: finish: %w", err)
		}
		accept = true

		switch reqType {
		case requestAdvanceState:
			meta, blob, err := b.readAdvanceState(fd)
			if err != nil {
				b.logf("read advance state failed: %v", err)
				accept = false
				continue
			}
			res, err := b.Dispatcher.Advance(meta, blob)
			if err != nil {
				b.logf("advance rejected: %v", err)
			}
			for _, n := range res.Notices {
				if err := b.writeNotice(fd, n); err != nil {
					return fmt.Errorf("device: write notice: %w", err)
				}
			}
			for _, v := range res.Vouchers {
				if err := b.writeVoucher(fd, v.Destination, v.Payload); err != nil {
					return fmt.Errorf("device: write voucher: %w", err)
				}
			}

		case requestInspectState:
			blob, err := b.readInspectState(fd)
			if err != nil {
				b.logf("read inspect state failed: %v", err)
				accept = false
				continue
			}
			report, err := b.Dispatcher.Inspect(blob)
			if err != nil {
				b.logf("inspect rejected: %v", err)
				accept = false
				continue
			}
			if err := b.writeReport(fd, report); err != nil {
				return fmt.Errorf("device: write report: %w", err)
			}

		default:
			b.logf("unknown request type %d from driver", reqType)
			accept = false
		}
	}
}

func (b *Backend) logf(format string, args ...any) {
	if b.Log != nil {
		b.Log.Infof(format, args...)
	}
}

func (b *Backend) finish(fd uintptr, accept bool) (int32, error) {
	req := rollupFinish{nextRequestType: -1}
	if accept {
		req.acceptPreviousRequest = 1
	}
	if err := ioctl(fd, ioctlFinish, unsafe.Pointer(&req)); err != nil {
		return 0, err
	}
	return req.nextRequestType, nil
}

// advanceHeader is the fixed portion of IOCTL_ROLLUP_READ_ADVANCE_STATE:
// the msg_sender/block_number/timestamp/epoch_index/input_index input
// metadata, plus the payload's length. The payload bytes
// themselves are copied into dataBuf, a process-owned buffer whose
// address is passed alongside this header — the driver convention this
// package follows throughout (data-by-pointer, not inlined in the ioctl
// struct) to avoid a fixed-size cap on payloads.
type advanceHeader struct {
	sender      [20]byte
	_           [4]byte // alignment padding
	blockNumber uint64
	timestamp   uint64
	epochIndex  uint64
	inputIndex  uint64
	dataPtr     uintptr
	length      uint64
}

func (b *Backend) readAdvanceState(fd uintptr) (wire.InputMetadata, []byte, error) {
	buf := make([]byte, maxPayload)
	hdr := advanceHeader{dataPtr: uintptr(unsafe.Pointer(&buf[0])), length: uint64(len(buf))}
	if err := ioctl(fd, ioctlReadAdvance, unsafe.Pointer(&hdr)); err != nil {
		return wire.InputMetadata{}, nil, err
	}
	meta := wire.InputMetadata{
		BlockNumber: hdr.blockNumber,
		Timestamp:   hdr.timestamp,
		EpochIndex:  hdr.epochIndex,
		InputIndex:  hdr.inputIndex,
	}
	copy(meta.Sender[:], hdr.sender[:])
	if hdr.length > uint64(len(buf)) {
		return wire.InputMetadata{}, nil, fmt.Errorf("advance payload %d exceeds buffer", hdr.length)
	}
	return meta, buf[:hdr.length], nil
}

type inspectHeader struct {
	dataPtr uintptr
	length  uint64
}

func (b *Backend) readInspectState(fd uintptr) ([]byte, error) {
	buf := make([]byte, maxPayload)
	hdr := inspectHeader{dataPtr: uintptr(unsafe.Pointer(&buf[0])), length: uint64(len(buf))}
	if err := ioctl(fd, ioctlReadInspect, unsafe.Pointer(&hdr)); err != nil {
		return nil, err
	}
	if hdr.length > uint64(len(buf)) {
		return nil, fmt.Errorf("inspect payload %d exceeds buffer", hdr.length)
	}
	return buf[:hdr.length], nil
}

type noticeReq struct {
	dataPtr uintptr
	length  uint64
}

func (b *Backend) writeNotice(fd uintptr, payload []byte) error {
	req := noticeReq{dataPtr: dataPtrOf(payload), length: uint64(len(payload))}
	return ioctl(fd, ioctlWriteNotice, unsafe.Pointer(&req))
}

type reportReq struct {
	dataPtr uintptr
	length  uint64
}

func (b *Backend) writeReport(fd uintptr, payload []byte) error {
	req := reportReq{dataPtr: dataPtrOf(payload), length: uint64(len(payload))}
	return ioctl(fd, ioctlWriteReport, unsafe.Pointer(&req))
}

type voucherReq struct {
	destination [32]byte // left-padded, matching the on-chain address width
	dataPtr     uintptr
	length      uint64
}

func (b *Backend) writeVoucher(fd uintptr, destination common.Address, payload []byte) error {
	var req voucherReq
	copy(req.destination[12:], destination[:])
	req.dataPtr = dataPtrOf(payload)
	req.length = uint64(len(payload))
	return ioctl(fd, ioctlWriteVoucher, unsafe.Pointer(&req))
}

func dataPtrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

func ioctl(fd, cmd uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
