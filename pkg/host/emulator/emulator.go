// Package emulator implements the file-replay rollup host backend: one of
// three interchangeable transports (the others are the kernel device,
// pkg/host/device, and the JSON-RPC server, pkg/host/rpcserver). It reads
// pre-recorded advance/inspect requests from a directory, feeds them to
// the dispatcher in filename order, and writes every notice/voucher/report
// to a mirrored output directory — useful for integration tests and for
// replaying a captured production input sequence against a fresh genesis
// image to check that the two runs produce an identical output stream.
package emulator

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/lambadex/lambadex/pkg/dispatch"
	"github.com/lambadex/lambadex/pkg/host"
	"github.com/lambadex/lambadex/pkg/journal"
	"github.com/lambadex/lambadex/pkg/wire"
)

const metadataSize = 20 + 8 + 8 + 8 + 8 // sender + block + timestamp + epoch + input_index

// Harness drives a dispatcher from a directory of recorded input files and
// writes outputs into a directory of output files.
type Harness struct {
	Dispatcher *dispatch.Dispatcher
	Journal    *journal.Journal // optional; nil disables durable replay logging
	InputDir   string
	OutputDir  string
	Log        *zap.SugaredLogger
}

// inputFile describes one request file: <index>.advance or
// <index>.inspect, sorted by index.
type inputFile struct {
	index   uint64
	path    string
	inspect bool
}

// listInputs scans dir for "<index>.advance" / "<index>.inspect" files and
// returns them sorted by index, matching the fixed index order the host
// guarantees.
func listInputs(dir string) ([]inputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("emulator: read input dir: %w", err)
	}
	var files []inputFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var inspect bool
		var stem string
		switch {
		case strings.HasSuffix(name, ".advance"):
			stem = strings.TrimSuffix(name, ".advance")
		case strings.HasSuffix(name, ".inspect"):
			stem, inspect = strings.TrimSuffix(name, ".inspect"), true
		default:
			continue
		}
		var idx uint64
		if _, err := fmt.Sscanf(stem, "%d", &idx); err != nil {
			continue
		}
		files = append(files, inputFile{index: idx, path: filepath.Join(dir, name), inspect: inspect})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].index < files[j].index })
	return files, nil
}

// decodeMetadata parses the metadataSize-byte header each ".advance" file
// carries before its raw input blob.
func decodeMetadata(buf []byte, index uint64) wire.InputMetadata {
	var m wire.InputMetadata
	copy(m.Sender[:], buf[0:20])
	m.BlockNumber = binary.LittleEndian.Uint64(buf[20:28])
	m.Timestamp = binary.LittleEndian.Uint64(buf[28:36])
	m.EpochIndex = binary.LittleEndian.Uint64(buf[36:44])
	m.InputIndex = index
	return m
}

// Run replays every recorded input in h.InputDir in index order, against
// h.Dispatcher, writing outputs to h.OutputDir. If h.Journal is non-nil
// and the journal already recorded a higher committed index than the
// host has replayed, restart resumes after it rather than reprocessing
// inputs the arena snapshot already reflects.
func (h *Harness) Run() error {
	files, err := listInputs(h.InputDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(h.OutputDir, 0755); err != nil {
		return fmt.Errorf("emulator: mkdir output dir: %w", err)
	}

	var resumeAfter uint64
	var haveResume bool
	if h.Journal != nil {
		resumeAfter, haveResume, err = h.Journal.GetCommitted()
		if err != nil {
			return fmt.Errorf("emulator: read journal watermark: %w", err)
		}
	}

	for _, f := range files {
		if haveResume && f.index <= resumeAfter {
			continue
		}
		raw, err := os.ReadFile(f.path)
		if err != nil {
			return fmt.Errorf("emulator: read %s: %w", f.path, err)
		}

		port := &filePort{dir: h.OutputDir, index: f.index}

		if f.inspect {
			report, err := h.Dispatcher.Inspect(raw)
			if err != nil {
				h.logf("inspect %d failed: %v", f.index, err)
				continue
			}
			if err := port.EmitReport(report); err != nil {
				return err
			}
			continue
		}

		if len(raw) < metadataSize {
			h.logf("advance %d: file too short for metadata header", f.index)
			continue
		}
		meta := decodeMetadata(raw[:metadataSize], f.index)
		blob := raw[metadataSize:]

		if h.Journal != nil {
			if err := h.Journal.Append(f.index, meta, blob); err != nil {
				return fmt.Errorf("emulator: journal append %d: %w", f.index, err)
			}
		}

		res, err := h.Dispatcher.Advance(meta, blob)
		if err != nil {
			h.logf("advance %d rejected: %v", f.index, err)
		}
		if err := host.EmitAdvanceResult(port, res); err != nil {
			return err
		}
		if h.Journal != nil {
			if err := h.Journal.SetCommitted(f.index); err != nil {
				return fmt.Errorf("emulator: journal commit %d: %w", f.index, err)
			}
		}
		h.logf("advance %d: %d notice(s), %d voucher(s)", f.index, len(res.Notices), len(res.Vouchers))
	}
	return nil
}

func (h *Harness) logf(format string, args ...any) {
	if h.Log != nil {
		h.Log.Infof(format, args...)
	}
}

// filePort is a host.Port that writes each emitted notice/voucher/report
// to its own numbered file under dir, named "<index>.notice.<n>",
// "<index>.voucher.<n>", "<index>.report".
type filePort struct {
	dir          string
	index        uint64
	noticeCount  int
	voucherCount int
}

func (p *filePort) EmitNotice(payload []byte) error {
	name := fmt.Sprintf("%d.notice.%d", p.index, p.noticeCount)
	p.noticeCount++
	return os.WriteFile(filepath.Join(p.dir, name), payload, 0644)
}

func (p *filePort) EmitVoucher(destination common.Address, payload []byte) error {
	name := fmt.Sprintf("%d.voucher.%d", p.index, p.voucherCount)
	p.voucherCount++
	buf := make([]byte, 20+len(payload))
	copy(buf[:20], destination[:])
	copy(buf[20:], payload)
	return os.WriteFile(filepath.Join(p.dir, name), buf, 0644)
}

func (p *filePort) EmitReport(payload []byte) error {
	name := fmt.Sprintf("%d.report", p.index)
	return os.WriteFile(filepath.Join(p.dir, name), payload, 0644)
}
