package wal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/Arrow-air/Flight-Log-Analyser/internal/domain"
	"github.com/Arrow-air/Flight-Log-Analyser/internal/ports"
)

// frame format: [1 kind][8 id][4 len][len bytes payload]
const frameHeaderLen = 13

const (
	kindJob byte = 'J'
	kindAck byte = 'A'
)

var errCorrupt = errors.New("corrupt job journal")

// FileWAL journals submitted jobs and acks them one by one. A job frame
// without a matching ack frame is pending and survives restarts.
type FileWAL struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	writer    *bufio.Writer
	nextID    ports.WALEntryID
	pending   map[ports.WALEntryID]struct{}
	sizeBytes int64
}

func NewFileWAL(dir string) (*FileWAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "jobs.wal")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	w := &FileWAL{
		path:    path,
		file:    f,
		writer:  bufio.NewWriterSize(f, 64*1024),
		pending: make(map[ports.WALEntryID]struct{}),
	}
	if err := w.scanExisting(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

type frame struct {
	kind    byte
	id      ports.WALEntryID
	payload []byte
}

// readFrame returns io.EOF on a clean end and io.ErrUnexpectedEOF on a torn
// tail.
func readFrame(r io.Reader, skipPayload bool) (frame, int64, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return frame{}, 0, err
	}
	fr := frame{kind: hdr[0], id: ports.WALEntryID(binary.BigEndian.Uint64(hdr[1:9]))}
	if fr.kind != kindJob && fr.kind != kindAck {
		return frame{}, 0, fmt.Errorf("%w: unknown frame kind %#x", errCorrupt, fr.kind)
	}
	length := int64(binary.BigEndian.Uint32(hdr[9:13]))
	if skipPayload {
		if n, err := io.CopyN(io.Discard, r, length); err != nil || n != length {
			return frame{}, 0, io.ErrUnexpectedEOF
		}
	} else {
		fr.payload = make([]byte, length)
		if _, err := io.ReadFull(r, fr.payload); err != nil {
			return frame{}, 0, io.ErrUnexpectedEOF
		}
	}
	return fr, frameHeaderLen + length, nil
}

func (w *FileWAL) scanExisting() error {
	rf, err := os.Open(w.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	r := bufio.NewReader(rf)
	var offset int64
	for {
		fr, n, err := readFrame(r, true)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// torn write from a crash; drop it
			if err := w.file.Truncate(offset); err != nil {
				return err
			}
			break
		}
		if err != nil {
			return err
		}
		offset += n
		switch fr.kind {
		case kindJob:
			w.pending[fr.id] = struct{}{}
			if fr.id > w.nextID {
				w.nextID = fr.id
			}
		case kindAck:
			delete(w.pending, fr.id)
		}
	}
	w.sizeBytes = offset
	return nil
}

func (w *FileWAL) writeFrameLocked(kind byte, id ports.WALEntryID, payload []byte) error {
	var hdr [frameHeaderLen]byte
	hdr[0] = kind
	binary.BigEndian.PutUint64(hdr[1:9], uint64(id))
	binary.BigEndian.PutUint32(hdr[9:13], uint32(len(payload)))
	if _, err := w.writer.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.writer.Write(payload); err != nil {
		return err
	}
	w.sizeBytes += int64(frameHeaderLen + len(payload))
	return nil
}

func (w *FileWAL) Append(j *domain.Job) (ports.WALEntryID, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return 0, fmt.Errorf("wal encode job: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID + 1
	if err := w.writeFrameLocked(kindJob, id, b); err != nil {
		return 0, err
	}
	// jobs are rare and large; flush each one so a crash loses nothing
	if err := w.writer.Flush(); err != nil {
		return 0, err
	}
	w.nextID = id
	w.pending[id] = struct{}{}
	return id, nil
}

// Ack marks jobs as finished. Ids that are not pending are ignored.
func (w *FileWAL) Ack(ids ...ports.WALEntryID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var wrote bool
	for _, id := range ids {
		if _, ok := w.pending[id]; !ok {
			continue
		}
		if err := w.writeFrameLocked(kindAck, id, nil); err != nil {
			return fmt.Errorf("wal ack %d: %w", id, err)
		}
		delete(w.pending, id)
		wrote = true
	}
	if !wrote {
		return nil
	}
	return w.writer.Flush()
}

// Pending calls fn for every unacked job in append order. The journal is
// not locked while fn runs.
func (w *FileWAL) Pending(fn func(id ports.WALEntryID, j *domain.Job) error) error {
	type entry struct {
		id  ports.WALEntryID
		job *domain.Job
	}
	var entries []entry

	w.mu.Lock()
	err := w.scanLocked(func(fr frame) error {
		if fr.kind != kindJob {
			return nil
		}
		if _, ok := w.pending[fr.id]; !ok {
			return nil
		}
		var j domain.Job
		if err := json.Unmarshal(fr.payload, &j); err != nil {
			return fmt.Errorf("%w: entry %d: %v", errCorrupt, fr.id, err)
		}
		entries = append(entries, entry{id: fr.id, job: &j})
		return nil
	})
	w.mu.Unlock()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := fn(e.id, e.job); err != nil {
			return err
		}
	}
	return nil
}

func (w *FileWAL) scanLocked(fn func(frame) error) error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	f, err := os.Open(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		fr, _, err := readFrame(r, false)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("wal scan: %w", err)
		}
		if err := fn(fr); err != nil {
			return err
		}
	}
}

// Compact rewrites the journal with only the pending job frames.
func (w *FileWAL) Compact() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tmpPath := w.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(tmp)

	var kept int64
	err = w.scanLocked(func(fr frame) error {
		if fr.kind != kindJob {
			return nil
		}
		if _, ok := w.pending[fr.id]; !ok {
			return nil
		}
		var hdr [frameHeaderLen]byte
		hdr[0] = kindJob
		binary.BigEndian.PutUint64(hdr[1:9], uint64(fr.id))
		binary.BigEndian.PutUint32(hdr[9:13], uint32(len(fr.payload)))
		if _, err := bw.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := bw.Write(fr.payload); err != nil {
			return err
		}
		kept += int64(frameHeaderLen + len(fr.payload))
		return nil
	})
	if err == nil {
		err = bw.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("wal compact: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.writer = bufio.NewWriterSize(f, 64*1024)
	w.sizeBytes = kept
	return nil
}

// Close flushes pending writes and closes the journal.
func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

func (w *FileWAL) Stats() ports.WALStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := ports.WALStats{
		Pending:        len(w.pending),
		LatestAppended: w.nextID,
		SizeBytes:      w.sizeBytes,
	}
	for id := range w.pending {
		if st.OldestPending == 0 || id < st.OldestPending {
			st.OldestPending = id
		}
	}
	return st
}

var _ ports.WAL = (*FileWAL)(nil)
