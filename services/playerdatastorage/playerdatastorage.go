// Package playerdatastorage emulates the per-user cloud save interface. The
// files of a user live under <userid>/<gamename>/remote in the storage
// backend.
package playerdatastorage

import (
	"errors"
	"fmt"
	"path"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/log"
	"github.com/linchenxuan/eosemu/services"
	"github.com/linchenxuan/eosemu/storage"
)

const Name = "playerdatastorage"

// RemoteDir is the per-game directory player files are kept in.
const RemoteDir = "remote"

var ErrNoStorage = errors.New("playerdatastorage: environment has no storage backend")

// PlayerDataStorage is the EOS_HPlayerDataStorage object.
type PlayerDataStorage struct {
	services.Base

	dir       string
	store     *storage.Store
	transfers *services.Transfers
}

var (
	_ callback.CallbackRunner = (*PlayerDataStorage)(nil)
	_ callback.FrameRunner    = (*PlayerDataStorage)(nil)
)

func New(env services.Env) (*PlayerDataStorage, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if env.Storage == nil {
		return nil, ErrNoStorage
	}
	s := env.Settings.Current()
	dir := path.Join(string(s.EpicID), s.GameName, RemoteDir)
	fs, err := env.Storage.Sub(dir)
	if err != nil {
		return nil, fmt.Errorf("playerdatastorage: %w", err)
	}
	pds := &PlayerDataStorage{
		Base: services.NewBase(Name, env),
		dir:  dir,
		store: storage.NewStore(Name, fs, storage.Limits{
			MaxChunkBytes: s.Storage.MaxChunkBytes,
			MaxFileBytes:  s.Storage.MaxFileBytes,
		}),
		transfers: services.NewTransfers(),
	}
	log.Info().Str("backend", env.Storage.FactoryName()).Str("root", env.Storage.Root()).Str("dir", dir).
		Msg("player data storage ready")
	pds.Attach(pds)
	return pds, nil
}

// Release aborts the transfers in flight and unregisters the interface.
func (p *PlayerDataStorage) Release() {
	p.Detach(p)

	p.Reg().Lock()
	defer p.Reg().Unlock()
	p.transfers.AbortAll()
}

// Dir returns the backend directory of the local user's files.
func (p *PlayerDataStorage) Dir() string { return p.dir }

func filenameResult(name string) eos.Result {
	if len(name) > storage.MaxFilenameLength {
		return eos.PlayerDataStorageFilenameLengthInvalid
	}
	if _, ok := storage.CleanPath(name); !ok {
		return eos.PlayerDataStorageFilenameInvalid
	}
	return eos.Success
}

func storeResult(err error) eos.Result {
	switch {
	case err == nil:
		return eos.Success
	case errors.Is(err, storage.ErrNotFound):
		return eos.NotFound
	case errors.Is(err, storage.ErrInvalidPath):
		return eos.PlayerDataStorageFilenameInvalid
	default:
		log.Error().Err(err).Msg("player data storage operation")
		return eos.UnexpectedError
	}
}

// QueryFile caches the metadata of one file.
func (p *PlayerDataStorage) QueryFile(opts *QueryFileOptions, clientData any, fn OnQueryFileCompleteCallback) eos.Result {
	p.Trace("QueryFile")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}
	if res := filenameResult(opts.Filename); res != eos.Success {
		return res
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	_, err := p.store.Query(opts.Filename)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info().Str("file", opts.Filename).Msg("file not found")
	}
	services.Complete(p, p.Reg(), &QueryFileCallbackInfo{
		ResultCode:  storeResult(err),
		ClientData:  clientData,
		LocalUserID: p.ProductUserID(),
	}, fn)
	return eos.Success
}

// QueryFileList rebuilds the metadata cache from every stored file.
func (p *PlayerDataStorage) QueryFileList(opts *QueryFileListOptions, clientData any, fn OnQueryFileListCompleteCallback) eos.Result {
	p.Trace("QueryFileList")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	n, err := p.store.QueryAll()
	services.Complete(p, p.Reg(), &QueryFileListCallbackInfo{
		ResultCode:  storeResult(err),
		ClientData:  clientData,
		LocalUserID: p.ProductUserID(),
		FileCount:   n,
	}, fn)
	return eos.Success
}

// GetFileMetadataCount returns the size of the metadata cache.
func (p *PlayerDataStorage) GetFileMetadataCount() int {
	p.Trace("GetFileMetadataCount")
	return p.store.Cache().Count()
}

func (p *PlayerDataStorage) CopyFileMetadataByFilename(filename string) (*FileMetadata, eos.Result) {
	p.Trace("CopyFileMetadataByFilename")
	name, ok := storage.CleanPath(filename)
	if !ok {
		return nil, eos.InvalidParameters
	}
	md, ok := p.store.Cache().Get(name)
	if !ok {
		return nil, eos.NotFound
	}
	return metadataFrom(md), eos.Success
}

func (p *PlayerDataStorage) CopyFileMetadataAtIndex(index int) (*FileMetadata, eos.Result) {
	p.Trace("CopyFileMetadataAtIndex")
	md, ok := p.store.Cache().At(index)
	if !ok {
		return nil, eos.InvalidParameters
	}
	return metadataFrom(md), eos.Success
}

// DuplicateFile copies a stored file.
func (p *PlayerDataStorage) DuplicateFile(opts *DuplicateFileOptions, clientData any, fn OnDuplicateFileCompleteCallback) eos.Result {
	p.Trace("DuplicateFile")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}
	for _, name := range []string{opts.SourceFilename, opts.DestinationFilename} {
		if res := filenameResult(name); res != eos.Success {
			return res
		}
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	err := p.store.Duplicate(opts.SourceFilename, opts.DestinationFilename)
	services.Complete(p, p.Reg(), &DuplicateFileCallbackInfo{
		ResultCode:  storeResult(err),
		ClientData:  clientData,
		LocalUserID: p.ProductUserID(),
	}, fn)
	return eos.Success
}

// DeleteFile removes a stored file.
func (p *PlayerDataStorage) DeleteFile(opts *DeleteFileOptions, clientData any, fn OnDeleteFileCompleteCallback) eos.Result {
	p.Trace("DeleteFile")
	if fn == nil || opts == nil {
		return eos.InvalidParameters
	}
	if res := filenameResult(opts.Filename); res != eos.Success {
		return res
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	err := p.store.Delete(opts.Filename)
	services.Complete(p, p.Reg(), &DeleteFileCallbackInfo{
		ResultCode:  storeResult(err),
		ClientData:  clientData,
		LocalUserID: p.ProductUserID(),
	}, fn)
	return eos.Success
}

// ReadFile starts a chunked read. A missing file completes with NotFound and
// returns no request.
func (p *PlayerDataStorage) ReadFile(opts *ReadFileOptions, clientData any, fn OnReadFileCompleteCallback) (*storage.Transfer, eos.Result) {
	p.Trace("ReadFile")
	if fn == nil || opts == nil || opts.ReadFileDataCallback == nil {
		return nil, eos.InvalidParameters
	}
	if res := filenameResult(opts.Filename); res != eos.Success {
		return nil, res
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	user := p.ProductUserID()
	info := &ReadFileCallbackInfo{ClientData: clientData, LocalUserID: user, Filename: opts.Filename}
	t, err := p.store.Read(storage.ReadRequest{
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
		log.Info().Err(err).Str("file", opts.Filename).Msg("file not readable")
		info.ResultCode = storeResult(err)
		services.Complete(p, p.Reg(), info, fn)
		return nil, eos.Success
	}

	res := callback.NewResult(info, callback.Typed(fn))
	p.transfers.Add(res, t)
	p.Reg().Enqueue(p, res)
	return t, eos.Success
}

// WriteFile starts a chunked write. The client data callback is asked for
// one chunk per pump cycle until it completes, fails or cancels.
func (p *PlayerDataStorage) WriteFile(opts *WriteFileOptions, clientData any, fn OnWriteFileCompleteCallback) (*storage.Transfer, eos.Result) {
	p.Trace("WriteFile")
	if fn == nil || opts == nil || opts.WriteFileDataCallback == nil {
		return nil, eos.InvalidParameters
	}
	if res := filenameResult(opts.Filename); res != eos.Success {
		return nil, res
	}

	p.Reg().Lock()
	defer p.Reg().Unlock()

	user := p.ProductUserID()
	info := &WriteFileCallbackInfo{ClientData: clientData, LocalUserID: user, Filename: opts.Filename}
	t, err := p.store.Write(storage.WriteRequest{
		Filename:   opts.Filename,
		ChunkBytes: opts.ChunkLengthBytes,
		Data: func(buf []byte) (int, storage.WriteResult) {
			return opts.WriteFileDataCallback(&WriteFileDataCallbackInfo{
				ClientData:            clientData,
				LocalUserID:           user,
				Filename:              opts.Filename,
				DataBufferLengthBytes: len(buf),
			}, buf)
		},
		Progress: progressFunc(opts.FileTransferProgressCallback, clientData, user),
	})
	if err != nil {
		log.Error().Err(err).Str("file", opts.Filename).Msg("start write")
		info.ResultCode = storeResult(err)
		services.Complete(p, p.Reg(), info, fn)
		return nil, eos.Success
	}

	res := callback.NewResult(info, callback.Typed(fn))
	p.transfers.Add(res, t)
	p.Reg().Enqueue(p, res)
	return t, eos.Success
}

// RunFrame forgets released requests that are finished.
func (p *PlayerDataStorage) RunFrame() bool {
	if n := p.transfers.Collect(); n > 0 {
		log.Debug().Int("collected", n).Int("live", p.transfers.Len()).Msg("player data storage requests collected")
	}
	return true
}

// RunCallbacks moves one chunk of a pending read or write.
func (p *PlayerDataStorage) RunCallbacks(res *callback.Result) bool {
	switch res.ID() {
	case eos.PlayerDataStorageReadFileCallback:
		info := callback.PayloadAs[*ReadFileCallbackInfo](res)
		return p.transfers.Step(res, func(code eos.Result) { info.ResultCode = code })
	case eos.PlayerDataStorageWriteFileCallback:
		info := callback.PayloadAs[*WriteFileCallbackInfo](res)
		return p.transfers.Step(res, func(code eos.Result) { info.ResultCode = code })
	default:
		res.MarkDone()
		return true
	}
}

// FreeCallback stops a transfer whose result is dropped before it finished.
func (p *PlayerDataStorage) FreeCallback(res *callback.Result) {
	switch res.ID() {
	case eos.PlayerDataStorageReadFileCallback, eos.PlayerDataStorageWriteFileCallback:
		p.transfers.Abort(res)
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
