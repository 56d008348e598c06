// Package titlestorage emulates the read-only title storage interface. Files
// are served from the titlestorage directory of the storage backend.
package titlestorage

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/services"
	"github.com/linchenxuan/eosemu/storage"
)

const Name = "titlestorage"

// Dir is the backend directory title files live in.
const Dir = "titlestorage"

var ErrNoStorage = errors.New("titlestorage: environment has no storage backend")

// TitleStorage is the EOS_HTitleStorage object.
type TitleStorage struct {
	services.Base

	store     *storage.Store
	transfers *services.Transfers
}

var (
	_ callback.CallbackRunner = (*TitleStorage)(nil)
	_ callback.FrameRunner    = (*TitleStorage)(nil)
)

func New(env services.Env) (*TitleStorage, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if env.Storage == nil {
		return nil, ErrNoStorage
	}
	fs, err := env.Storage.Sub(Dir)
	if err != nil {
		return nil, fmt.Errorf("titlestorage: %w", err)
	}
	cfg := env.Settings.Current().Storage
	ts := &TitleStorage{
		Base: services.NewBase(Name, env),
		store: storage.NewStore(Name, afero.NewReadOnlyFs(fs), storage.Limits{
			MaxChunkBytes: cfg.MaxChunkBytes,
			MaxFileBytes:  cfg.MaxFileBytes,
		}),
		transfers: services.NewTransfers(),
	}
	log.Info().Str("backend", env.Storage.FactoryName()).Str("root", env.Storage.Root()).Str("dir", Dir).
		Msg("title storage files are searched here")
	ts.Attach(ts)
	return ts, nil
}

// Release aborts the transfers in flight and unregisters the interface.
func (ts *TitleStorage) Release() {
	ts.Detach(ts)

	ts.Reg().Lock()
	defer ts.Reg().Unlock()
	ts.transfers.AbortAll()
}

// QueryFile caches the metadata of one file.
func (ts *TitleStorage) QueryFile(opts *QueryFileOptions, clientData any, fn OnQueryFileCompleteCallback) eos.Result {
	ts.Trace("QueryFile")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}
	if _, ok := storage.CleanPath(opts.Filename); !ok {
		return eos.InvalidParameters
	}

	ts.Reg().Lock()
	defer ts.Reg().Unlock()

	info := &QueryFileCallbackInfo{ClientData: clientData, LocalUserID: ts.ProductUserID()}
	info.ResultCode = queryResult(ts.store.Query(opts.Filename))
	services.Complete(ts, ts.Reg(), info, fn)
	return eos.Success
}

// QueryFileList rebuilds the metadata cache from every title file.
func (ts *TitleStorage) QueryFileList(opts *QueryFileListOptions, clientData any, fn OnQueryFileListCompleteCallback) eos.Result {
	ts.Trace("QueryFileList")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	ts.Reg().Lock()
	defer ts.Reg().Unlock()

	info := &QueryFileListCallbackInfo{ResultCode: eos.Success, ClientData: clientData, LocalUserID: ts.ProductUserID()}
	n, err := ts.store.QueryAll()
	if err != nil {
		log.Error().Err(err).Msg("list title files")
		info.ResultCode = eos.UnexpectedError
	}
	info.FileCount = n
	services.Complete(ts, ts.Reg(), info, fn)
	return eos.Success
}

// GetFileMetadataCount returns the size of the metadata cache.
func (ts *TitleStorage) GetFileMetadataCount() int {
	ts.Trace("GetFileMetadataCount")
	return ts.store.Cache().Count()
}

// CopyFileMetadataByFilename returns cached metadata.
func (ts *TitleStorage) CopyFileMetadataByFilename(filename string) (*FileMetadata, eos.Result) {
	ts.Trace("CopyFileMetadataByFilename")
	p, ok := storage.CleanPath(filename)
	if !ok {
		return nil, eos.InvalidParameters
	}
	md, ok := ts.store.Cache().Get(p)
	if !ok {
		return nil, eos.NotFound
	}
	return metadataFrom(md), eos.Success
}

// CopyFileMetadataAtIndex returns cached metadata in filename order.
func (ts *TitleStorage) CopyFileMetadataAtIndex(index int) (*FileMetadata, eos.Result) {
	ts.Trace("CopyFileMetadataAtIndex")
	md, ok := ts.store.Cache().At(index)
	if !ok {
		return nil, eos.InvalidParameters
	}
	return metadataFrom(md), eos.Success
}

// ReadFile starts a chunked read. A missing file completes with NotFound and
// returns no request.
func (ts *TitleStorage) ReadFile(opts *ReadFileOptions, clientData any, fn OnReadFileCompleteCallback) (*storage.Transfer, eos.Result) {
	ts.Trace("ReadFile")
	if fn == nil || opts == nil || opts.ReadFileDataCallback == nil {
		return nil, eos.InvalidParameters
	}
	if _, ok := storage.CleanPath(opts.Filename); !ok {
		return nil, eos.InvalidParameters
	}

	ts.Reg().Lock()
	defer ts.Reg().Unlock()

	user := ts.ProductUserID()
	info := &ReadFileCallbackInfo{ClientData: clientData, LocalUserID: user, Filename: opts.Filename}
	t, err := ts.store.Read(storage.ReadRequest{
		Filename:   opts.Filename,
		ChunkBytes: opts.ReadChunkLengthBytes,
		Data: func(c *storage.ReadChunk) storage.ReadResult {
			return opts.ReadFileDataCallback(&ReadFileDataCallbackInfo{
				ClientData:         clientData,
				LocalUserID:        user,
				Filename:           c.Filename,
				TotalFileSizeBytes: c.TotalSize,
				IsLastChunk:        c.LastChunk,
				DataChunk:          c.Data,
			})
		},
		Progress: progressFunc(opts.FileTransferProgressCallback, clientData, user),
	})
	if err != nil {
		info.ResultCode = queryResult(storage.Metadata{}, err)
		log.Info().Err(err).Str("file", opts.Filename).Msg("title file not readable")
		services.Complete(ts, ts.Reg(), info, fn)
		return nil, eos.Success
	}

	res := callback.NewResult(info, callback.Typed(fn))
	ts.transfers.Add(res, t)
	ts.Reg().Enqueue(ts, res)
	return t, eos.Success
}

// DeleteCache has no local cache to drop.
func (ts *TitleStorage) DeleteCache(clientData any, fn OnDeleteCacheCompleteCallback) eos.Result {
	ts.Trace("DeleteCache")
	if fn == nil {
		return eos.Success
	}

	ts.Reg().Lock()
	defer ts.Reg().Unlock()

	services.Complete(ts, ts.Reg(), &DeleteCacheCallbackInfo{
		ResultCode:  eos.Success,
		ClientData:  clientData,
		LocalUserID: ts.ProductUserID(),
	}, fn)
	return eos.Success
}

// RunFrame forgets released requests that are finished.
func (ts *TitleStorage) RunFrame() bool {
	if n := ts.transfers.Collect(); n > 0 {
		log.Debug().Int("collected", n).Int("live", ts.transfers.Len()).Msg("title storage requests collected")
	}
	return true
}

// RunCallbacks moves one chunk of a pending read.
func (ts *TitleStorage) RunCallbacks(res *callback.Result) bool {
	if res.ID() != eos.TitleStorageReadFileCallback {
		res.MarkDone()
		return true
	}
	info := callback.PayloadAs[*ReadFileCallbackInfo](res)
	return ts.transfers.Step(res, func(code eos.Result) { info.ResultCode = code })
}

// FreeCallback stops a read whose result is dropped before it finished.
func (ts *TitleStorage) FreeCallback(res *callback.Result) {
	if res.ID() == eos.TitleStorageReadFileCallback {
		ts.transfers.Abort(res)
	}
}

func queryResult(_ storage.Metadata, err error) eos.Result {
	switch {
	case err == nil:
		return eos.Success
	case errors.Is(err, storage.ErrNotFound):
		return eos.NotFound
	case errors.Is(err, storage.ErrInvalidPath):
		return eos.InvalidParameters
	default:
		log.Error().Err(err).Msg("query title file")
		return eos.UnexpectedError
	}
}

func progressFunc(fn OnFileTransferProgressCallback, clientData any, user eos.ProductUserID) storage.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(filename string, transferred, total int64) {
		fn(&FileTransferProgressCallbackInfo{
			ClientData:         clientData,
			LocalUserID:        user,
			Filename:           filename,
			BytesTransferred:   transferred,
			TotalFileSizeBytes: total,
		})
	}
}
