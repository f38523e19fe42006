// Package arena implements the persistent bump allocator described by the
// external interfaces: a fixed-size region, identified by a configured
// virtual base address, whose contents survive process restarts.
//
// Rather than replicating raw pointer arithmetic over an mmap'd struct
// graph, this implementation follows the arena-relative, serialize-and-
// rebuild strategy: callers Reserve byte ranges for a single flat
// snapshot of exchange state and the arena never frees anything. The
// "pointer trick" is not the part of the contract worth keeping in Go;
// the fixed identity, the bump allocation, and the fail-without-mutating
// exhaustion behavior are.
package arena

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var (
	magic = [8]byte{'L', 'A', 'M', 'B', 'D', 'A', 'X', '1'}

	// ErrExhausted is returned by Reserve when the requested length would
	// overrun the arena. NextFree is left untouched.
	ErrExhausted = errors.New("arena: exhausted")

	// ErrIdentityMismatch is returned by Open when an existing image's
	// recorded virtual base does not match the one the caller configured.
	ErrIdentityMismatch = errors.New("arena: virtual start mismatch")
)

const headerSize = 64

// header is the first headerSize bytes of the arena, laid out manually
// (not via encoding/binary.Read/Write on the struct) so the on-disk
// layout is pinned down independent of Go struct padding.
type header struct {
	virtualStart uint64
	length       uint64
	nextFree     uint64
	snapshotOff  uint64
	snapshotLen  uint64
}

func (h *header) encode(buf []byte) {
	copy(buf[0:8], magic[:])
	binary.LittleEndian.PutUint64(buf[8:16], h.virtualStart)
	binary.LittleEndian.PutUint64(buf[16:24], h.length)
	binary.LittleEndian.PutUint64(buf[24:32], h.nextFree)
	binary.LittleEndian.PutUint64(buf[32:40], h.snapshotOff)
	binary.LittleEndian.PutUint64(buf[40:48], h.snapshotLen)
}

func decodeHeader(buf []byte) (header, bool) {
	var h header
	if string(buf[0:8]) != string(magic[:]) {
		return h, false
	}
	h.virtualStart = binary.LittleEndian.Uint64(buf[8:16])
	h.length = binary.LittleEndian.Uint64(buf[16:24])
	h.nextFree = binary.LittleEndian.Uint64(buf[24:32])
	h.snapshotOff = binary.LittleEndian.Uint64(buf[32:40])
	h.snapshotLen = binary.LittleEndian.Uint64(buf[40:48])
	return h, true
}

// Arena is a persistent, single-writer bump allocator over a fixed-length
// mmap'd file.
type Arena struct {
	file *os.File
	data []byte
	h    header
}

// Open maps path at the given virtual identity. If initialize is true, a
// fresh arena of the given length is laid down (truncating any existing
// contents); otherwise an existing image is opened and its header is
// validated against virtualStart.
func Open(path string, virtualStart, length uint64, initialize bool) (*Arena, error) {
	flags := os.O_RDWR | os.O_CREATE
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("arena: open %s: %w", path, err)
	}

	if initialize {
		if err := f.Truncate(0); err != nil {
			f.Close()
			return nil, fmt.Errorf("arena: truncate: %w", err)
		}
		if err := f.Truncate(int64(length)); err != nil {
			f.Close()
			return nil, fmt.Errorf("arena: truncate: %w", err)
		}
	} else {
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		if uint64(fi.Size()) != length {
			if err := f.Truncate(int64(length)); err != nil {
				f.Close()
				return nil, fmt.Errorf("arena: truncate: %w", err)
			}
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("arena: mmap: %w", err)
	}

	a := &Arena{file: f, data: data}

	if initialize {
		a.h = header{virtualStart: virtualStart, length: length, nextFree: headerSize}
		a.h.encode(a.data[:headerSize])
	} else {
		h, ok := decodeHeader(a.data[:headerSize])
		if !ok {
			h = header{virtualStart: virtualStart, length: length, nextFree: headerSize}
			h.encode(a.data[:headerSize])
		}
		if h.virtualStart != virtualStart {
			unix.Munmap(a.data)
			f.Close()
			return nil, ErrIdentityMismatch
		}
		a.h = h
	}

	return a, nil
}

// Close unmaps and closes the backing file.
func (a *Arena) Close() error {
	if err := unix.Msync(a.data, unix.MS_SYNC); err != nil {
		return err
	}
	if err := unix.Munmap(a.data); err != nil {
		return err
	}
	return a.file.Close()
}

// Reserve bump-allocates n bytes and returns the offset they start at.
// On ErrExhausted, NextFree is left unchanged: the arena's visible state
// is exactly as it was before the call.
func (a *Arena) Reserve(n uint64) (uint64, error) {
	if a.h.nextFree+n > a.h.length || a.h.nextFree+n < a.h.nextFree {
		return 0, ErrExhausted
	}
	off := a.h.nextFree
	a.h.nextFree += n
	a.h.encode(a.data[:headerSize])
	return off, nil
}

// NextFree reports the current bump-allocation watermark.
func (a *Arena) NextFree() uint64 { return a.h.nextFree }

// Length reports the total arena size.
func (a *Arena) Length() uint64 { return a.h.length }

// Write copies b into the arena at off, which must have come from a
// prior Reserve covering at least len(b) bytes.
func (a *Arena) Write(off uint64, b []byte) {
	copy(a.data[off:], b)
}

// Read returns a view of n bytes at off. The slice aliases the mmap'd
// region; callers that need an independent copy should clone it.
func (a *Arena) Read(off, n uint64) []byte {
	return a.data[off : off+n]
}

// CommitSnapshot bump-allocates a fresh region, writes data into it, and
// records it as the current snapshot. The previous snapshot's bytes are
// simply abandoned: deallocation in this arena is a no-op, as specified.
func (a *Arena) CommitSnapshot(data []byte) error {
	off, err := a.Reserve(uint64(len(data)))
	if err != nil {
		return err
	}
	a.Write(off, data)
	a.h.snapshotOff = off
	a.h.snapshotLen = uint64(len(data))
	a.h.encode(a.data[:headerSize])
	return unix.Msync(a.data, unix.MS_SYNC)
}

// LoadSnapshot returns a copy of the most recently committed snapshot, or
// nil if none has ever been committed.
func (a *Arena) LoadSnapshot() []byte {
	if a.h.snapshotLen == 0 {
		return nil
	}
	src := a.Read(a.h.snapshotOff, a.h.snapshotLen)
	out := make([]byte, len(src))
	copy(out, src)
	return out
}
