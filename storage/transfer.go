package storage

import (
	"io"
	"sync"

	"github.com/spf13/afero"

	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/metrics"
)

// ReadResult is what a read data callback tells the transfer to do next.
type ReadResult int

const (
	ReadContinue ReadResult = iota + 1
	ReadFail
	ReadCancel
)

// WriteResult is what a write data callback tells the transfer to do next.
type WriteResult int

const (
	WriteContinue WriteResult = iota + 1
	WriteComplete
	WriteFail
	WriteCancel
)

// ReadChunk is handed to the read data callback once per pump cycle. Data
// is only valid for the duration of the call.
type ReadChunk struct {
	Filename  string
	Data      []byte
	Offset    int64
	TotalSize int64
	LastChunk bool
}

// ReadFunc consumes one chunk of a read.
type ReadFunc func(chunk *ReadChunk) ReadResult

// WriteFunc fills buf with the next chunk of a write and returns how many
// bytes it wrote.
type WriteFunc func(buf []byte) (int, WriteResult)

// ProgressFunc observes a transfer after every chunk. total is the file
// size for reads and the bytes written so far for writes.
type ProgressFunc func(filename string, transferred, total int64)

// ReadRequest describes a read.
type ReadRequest struct {
	Filename   string
	ChunkBytes int
	Data       ReadFunc
	Progress   ProgressFunc
}

// WriteRequest describes a write.
type WriteRequest struct {
	Filename   string
	ChunkBytes int
	Data       WriteFunc
	Progress   ProgressFunc
}

type direction string

const (
	dirRead  direction = "read"
	dirWrite direction = "write"
)

// Transfer is a File Transfer Request: one in-flight chunked read or write.
// The owning service advances it with Step from RunCallbacks, one chunk per
// pump cycle. State, Filename, Cancel and Release may be called from any
// goroutine.
//
// The data and progress callbacks run inside the pump with the global lock
// held and must not call back into the services.
type Transfer struct {
	mu       sync.Mutex
	done     bool
	canceled bool
	released bool
	result   eos.Result

	iface    string
	dir      direction
	fs       afero.Fs
	name     string
	path     string
	tmpPath  string
	file     afero.File
	buf      *[]byte
	offset   int64
	total    int64
	maxBytes int64

	readFn   ReadFunc
	writeFn  WriteFunc
	progress ProgressFunc
	onCommit func(name string)
}

// Filename returns the client filename of the request.
func (t *Transfer) Filename() string { return t.name }

// State returns Success once the request finished and
// PlayerDataStorageRequestInProgress before.
func (t *Transfer) State() eos.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return eos.Success
	}
	return eos.PlayerDataStorageRequestInProgress
}

// Result returns the terminal result, meaningful once finished.
func (t *Transfer) Result() eos.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Cancel flags the request. It takes effect on the next Step. A finished
// request reports NoChange.
func (t *Transfer) Cancel() eos.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || t.canceled {
		return eos.NoChange
	}
	t.canceled = true
	return eos.Success
}

// Release marks the client handle as dropped. The owning service collects
// the request once it is also finished.
func (t *Transfer) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.released = true
}

// Released reports whether Release was called.
func (t *Transfer) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// Finished reports whether the request reached a terminal state.
func (t *Transfer) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Transferred returns the bytes moved so far.
func (t *Transfer) Transferred() int64 { return t.offset }

// Step moves one chunk. It returns the terminal result and true once the
// request is finished; later calls return the same.
func (t *Transfer) Step() (eos.Result, bool) {
	t.mu.Lock()
	done, canceled, result := t.done, t.canceled, t.result
	t.mu.Unlock()

	if done {
		return result, true
	}
	if canceled {
		return t.finish(eos.Canceled), true
	}
	if t.dir == dirRead {
		return t.stepRead()
	}
	return t.stepWrite()
}

// Abort finishes the request as Canceled without a final data callback.
func (t *Transfer) Abort() {
	if t.Finished() {
		return
	}
	t.finish(eos.Canceled)
}

func (t *Transfer) stepRead() (eos.Result, bool) {
	want := int64(len(*t.buf))
	if left := t.total - t.offset; left < want {
		want = left
	}
	data := (*t.buf)[:want]
	n, err := io.ReadFull(t.file, data)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		log.Error().Err(err).Str("file", t.path).Msg("read chunk")
		return t.finish(eos.UnexpectedError), true
	}

	chunk := &ReadChunk{
		Filename:  t.name,
		Data:      data[:n],
		Offset:    t.offset,
		TotalSize: t.total,
		LastChunk: t.offset+int64(n) >= t.total || n < len(data),
	}
	t.offset += int64(n)
	t.countBytes(n)

	res := t.readFn(chunk)
	if t.progress != nil {
		t.progress(t.name, t.offset, t.total)
	}

	switch res {
	case ReadContinue:
		if chunk.LastChunk {
			return t.finish(eos.Success), true
		}
		return eos.PlayerDataStorageRequestInProgress, false
	case ReadFail:
		return t.finish(eos.PlayerDataStorageUserErrorFromDataCallback), true
	case ReadCancel:
		return t.finish(eos.Canceled), true
	default:
		log.Warn().Str("file", t.name).Int("result", int(res)).Msg("unknown read data callback result")
		return t.finish(eos.PlayerDataStorageUserErrorFromDataCallback), true
	}
}

func (t *Transfer) stepWrite() (eos.Result, bool) {
	buf := *t.buf
	n, res := t.writeFn(buf)
	if n < 0 || n > len(buf) {
		log.Warn().Str("file", t.name).Int("written", n).Int("buffer", len(buf)).Msg("write data callback overflow")
		return t.finish(eos.PlayerDataStorageDataInvalid), true
	}
	if t.maxBytes > 0 && t.offset+int64(n) > t.maxBytes {
		return t.finish(eos.PlayerDataStorageFileSizeTooLarge), true
	}
	if n > 0 {
		if _, err := t.file.Write(buf[:n]); err != nil {
			log.Error().Err(err).Str("file", t.tmpPath).Msg("write chunk")
			return t.finish(eos.UnexpectedError), true
		}
		t.offset += int64(n)
		t.countBytes(n)
	}
	if t.progress != nil {
		t.progress(t.name, t.offset, t.offset)
	}

	switch res {
	case WriteContinue:
		return eos.PlayerDataStorageRequestInProgress, false
	case WriteComplete:
		return t.finish(eos.Success), true
	case WriteFail:
		return t.finish(eos.PlayerDataStorageUserErrorFromDataCallback), true
	case WriteCancel:
		return t.finish(eos.Canceled), true
	default:
		log.Warn().Str("file", t.name).Int("result", int(res)).Msg("unknown write data callback result")
		return t.finish(eos.PlayerDataStorageUserErrorFromDataCallback), true
	}
}

// finish releases the file and buffer and records the terminal result. A
// successful write is renamed into place first.
func (t *Transfer) finish(result eos.Result) eos.Result {
	if t.file != nil {
		if err := t.file.Close(); err != nil && result == eos.Success {
			log.Error().Err(err).Str("file", t.name).Msg("close transfer file")
			result = eos.UnexpectedError
		}
		t.file = nil
	}
	putChunk(t.buf)
	t.buf = nil

	if t.dir == dirWrite {
		if result == eos.Success {
			if err := t.fs.Rename(t.tmpPath, t.path); err != nil {
				log.Error().Err(err).Str("file", t.path).Msg("commit write")
				result = eos.UnexpectedError
			}
		}
		if result != eos.Success {
			_ = t.fs.Remove(t.tmpPath)
		} else if t.onCommit != nil {
			t.onCommit(t.path)
		}
	}

	t.mu.Lock()
	t.done = true
	t.result = result
	t.mu.Unlock()

	log.Info().Str("file", t.name).Str("direction", string(t.dir)).Int64("bytes", t.offset).
		Str("result", result.String()).Msg("transfer finished")
	return result
}

func (t *Transfer) countBytes(n int) {
	if n == 0 {
		return
	}
	metrics.IncrCounterWithDimGroup(metrics.NameTransferBytesTotal, metrics.GroupEmu, metrics.Value(n), metrics.Dimension{
		metrics.DimIface:     t.iface,
		metrics.DimDirection: string(t.dir),
	})
}
