// Package journal is the durable input replay ledger: every advance input
// the host ever handed the dispatcher, keyed by its input index, plus a
// committed-index marker. It exists so a host backend can recover from an
// unclean shutdown by replaying inputs the arena snapshot hasn't caught up
// to yet, without needing the rollup framework itself to resend them.
//
// Keys are prefix-tagged byte strings over a pebble key-value store, and
// entries are gob-encoded.
package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/lambadex/lambadex/pkg/wire"
)

// Journal is a pebble-backed append log of advance inputs.
type Journal struct {
	db *pebble.DB
}

// Open opens (creating if absent) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// keys: i:<8-byte-be-index> -> gob(entry); cm -> 8-byte-be committed index
func kInput(index uint64) []byte {
	k := make([]byte, 2+8)
	copy(k, "i:")
	binary.BigEndian.PutUint64(k[2:], index)
	return k
}
func kCommitted() []byte { return []byte("cm") }

type entry struct {
	Meta wire.InputMetadata
	Blob []byte
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}

// Append durably records one advance input at index before the dispatcher
// processes it. The caller is responsible for assigning indices in the
// strictly increasing order the host delivered them.
func (j *Journal) Append(index uint64, meta wire.InputMetadata, blob []byte) error {
	val, err := encodeGob(entry{Meta: meta, Blob: blob})
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}
	return j.db.Set(kInput(index), val, pebble.Sync)
}

// Get returns the input recorded at index, if any.
func (j *Journal) Get(index uint64) (wire.InputMetadata, []byte, bool, error) {
	val, closer, err := j.db.Get(kInput(index))
	if err == pebble.ErrNotFound {
		return wire.InputMetadata{}, nil, false, nil
	}
	if err != nil {
		return wire.InputMetadata{}, nil, false, err
	}
	defer closer.Close()

	var e entry
	if err := decodeGob(val, &e); err != nil {
		return wire.InputMetadata{}, nil, false, fmt.Errorf("decode journal entry: %w", err)
	}
	return e.Meta, e.Blob, true, nil
}

// SetCommitted records the highest input index whose resulting snapshot has
// been durably committed into the arena. A restart replays only inputs
// strictly after this index.
func (j *Journal) SetCommitted(index uint64) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], index)
	return j.db.Set(kCommitted(), v[:], pebble.Sync)
}

// GetCommitted returns the last committed input index, or ok=false if the
// journal has never recorded one (fresh genesis).
func (j *Journal) GetCommitted() (uint64, bool, error) {
	val, closer, err := j.db.Get(kCommitted())
	if err == pebble.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	defer closer.Close()
	return binary.BigEndian.Uint64(val), true, nil
}

// Replay calls fn once per recorded input strictly after `after`, in
// increasing index order, stopping at the first error fn returns.
func (j *Journal) Replay(after uint64, fn func(index uint64, meta wire.InputMetadata, blob []byte) error) error {
	lower := kInput(after + 1)
	upper := []byte("i;") // ':' + 1 == ';', sorts past every "i:" key
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		index := binary.BigEndian.Uint64(iter.Key()[2:])
		var e entry
		if err := decodeGob(iter.Value(), &e); err != nil {
			return fmt.Errorf("decode journal entry at %d: %w", index, err)
		}
		if err := fn(index, e.Meta, e.Blob); err != nil {
			return err
		}
	}
	return iter.Error()
}
