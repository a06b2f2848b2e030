package walentry

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"
)

// Config controls where the journal lives and how large a segment
// grows before rotating to a new file.
type Config struct {
	Dir         string
	SegmentSize int64
}

// WAL is an append-only, segment-rotating command journal. It is not
// safe for concurrent use; the service layer that owns one serializes
// all Append calls from its single writer goroutine.
type WAL struct {
	dir        string
	segSize    int64
	current    *segment
	segIndex   int
	lastRotate time.Time
}

// Open creates dir if needed and opens (or creates) segment 0.
func Open(cfg Config) (*WAL, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = 64 << 20
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	seg, err := openSegment(cfg.Dir, 0)
	if err != nil {
		return nil, err
	}

	return &WAL{
		dir:        cfg.Dir,
		segSize:    cfg.SegmentSize,
		current:    seg,
		lastRotate: time.Now(),
	}, nil
}

// Append frames r as [type:1][seq:8][time:8][len:4][payload][crc:4],
// writes it to the current segment, and rotates if the segment has
// grown past SegmentSize.
func (w *WAL) Append(r *Record) error {
	payloadLen := uint32(len(r.Data))

	buf := make([]byte, 1+8+8+4+payloadLen+4)
	buf[0] = byte(r.Type)
	binary.BigEndian.PutUint64(buf[1:9], r.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.Time))
	binary.BigEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[21:], r.Data)

	crc := crcSum(buf[:21+payloadLen])
	binary.BigEndian.PutUint32(buf[21+payloadLen:], crc)

	if err := w.current.append(buf); err != nil {
		return err
	}
	if err := w.current.sync(); err != nil {
		return err
	}

	if w.current.offset >= w.segSize {
		return w.rotate()
	}
	return nil
}

func (w *WAL) rotate() error {
	if err := w.current.close(); err != nil {
		return err
	}
	w.segIndex++

	seg, err := openSegment(w.dir, w.segIndex)
	if err != nil {
		return err
	}

	w.current = seg
	w.lastRotate = time.Now()
	return nil
}

// Close flushes and closes the active segment.
func (w *WAL) Close() error {
	return w.current.close()
}

// TruncateBefore removes every segment whose highest sequence number
// is at or below seq, called after a snapshot makes those entries
// unnecessary for recovery. The newest segment file, the one Append
// writes to, is always kept.
func (w *WAL) TruncateBefore(seq uint64) error {
	files, err := filepath.Glob(filepath.Join(w.dir, "segment-*.wal"))
	if err != nil {
		return err
	}
	if len(files) > 0 {
		files = files[:len(files)-1]
	}

	for _, path := range files {
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			_ = os.Remove(path)
		}
	}
	return nil
}
