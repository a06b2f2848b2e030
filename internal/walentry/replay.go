package walentry

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ReplayHandler is invoked once per record found, in segment and
// sequence order.
type ReplayHandler func(*Record) error

// Replay walks every segment-*.wal file in dir in order and calls fn
// for each valid record, returning the highest sequence number seen
// so the caller can resume a Sequencer from it.
func Replay(dir string, fn ReplayHandler) (lastSeq uint64, err error) {
	files, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return lastSeq, err
		}

		for {
			rec, err := readRecord(f)
			if err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					// a torn tail record means the process crashed
					// mid-append; everything before it already
					// reached the book, so stop cleanly here.
					break
				}
				f.Close()
				return lastSeq, err
			}

			if rec.Seq <= lastSeq && lastSeq != 0 {
				f.Close()
				return lastSeq, fmt.Errorf("walentry: non-monotonic sequence %d after %d in %s", rec.Seq, lastSeq, path)
			}
			lastSeq = rec.Seq

			if err := fn(rec); err != nil {
				f.Close()
				return lastSeq, err
			}
		}
		f.Close()
	}

	return lastSeq, nil
}

func readRecord(r io.Reader) (*Record, error) {
	header := make([]byte, 21)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	t := RecordType(header[0])
	seq := binary.BigEndian.Uint64(header[1:9])
	ts := binary.BigEndian.Uint64(header[9:17])
	l := binary.BigEndian.Uint32(header[17:21])

	rest := make([]byte, l+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, io.ErrUnexpectedEOF
	}

	payload := rest[:l]
	crc := binary.BigEndian.Uint32(rest[l:])

	if !crcValid(append(append([]byte{}, header...), payload...), crc) {
		return nil, fmt.Errorf("walentry: crc mismatch at seq %d", seq)
	}

	return &Record{
		Type: t,
		Seq:  seq,
		Time: int64(ts),
		Data: payload,
	}, nil
}
