package playerdatastorage

import (
	"time"

	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/storage"
)

type (
	ReadResult  = storage.ReadResult
	WriteResult = storage.WriteResult
)

const (
	ReadContinue = storage.ReadContinue
	ReadFail     = storage.ReadFail
	ReadCancel   = storage.ReadCancel

	WriteContinue = storage.WriteContinue
	WriteComplete = storage.WriteComplete
	WriteFail     = storage.WriteFail
	WriteCancel   = storage.WriteCancel
)

// FileMetadata describes one player file.
type FileMetadata struct {
	FileSizeBytes    int64
	MD5Hash          string
	Filename         string
	LastModifiedTime time.Time
}

func metadataFrom(md storage.Metadata) *FileMetadata {
	return &FileMetadata{
		FileSizeBytes:    md.Size,
		MD5Hash:          md.MD5Hash,
		Filename:         md.Filename,
		LastModifiedTime: md.LastModified,
	}
}

type QueryFileOptions struct {
	LocalUserID eos.ProductUserID
	Filename    string
}

type QueryFileListOptions struct {
	LocalUserID eos.ProductUserID
}

type DuplicateFileOptions struct {
	LocalUserID         eos.ProductUserID
	SourceFilename      string
	DestinationFilename string
}

type DeleteFileOptions struct {
	LocalUserID eos.ProductUserID
	Filename    string
}

type ReadFileDataCallbackInfo struct {
	ClientData         any
	LocalUserID        eos.ProductUserID
	Filename           string
	TotalFileSizeBytes int64
	IsLastChunk        bool
	DataChunk          []byte
}

// WriteFileDataCallbackInfo asks the client for the next chunk. The client
// fills at most DataBufferLengthBytes bytes of the buffer it is handed.
type WriteFileDataCallbackInfo struct {
	ClientData            any
	LocalUserID           eos.ProductUserID
	Filename              string
	DataBufferLengthBytes int
}

type FileTransferProgressCallbackInfo struct {
	ClientData         any
	LocalUserID        eos.ProductUserID
	Filename           string
	BytesTransferred   int64
	TotalFileSizeBytes int64
}

type (
	OnReadFileDataCallback         = func(*ReadFileDataCallbackInfo) ReadResult
	OnWriteFileDataCallback        = func(info *WriteFileDataCallbackInfo, out []byte) (int, WriteResult)
	OnFileTransferProgressCallback = func(*FileTransferProgressCallbackInfo)
)

type ReadFileOptions struct {
	LocalUserID                  eos.ProductUserID
	Filename                     string
	ReadChunkLengthBytes         int
	ReadFileDataCallback         OnReadFileDataCallback
	FileTransferProgressCallback OnFileTransferProgressCallback
}

type WriteFileOptions struct {
	LocalUserID                  eos.ProductUserID
	Filename                     string
	ChunkLengthBytes             int
	WriteFileDataCallback        OnWriteFileDataCallback
	FileTransferProgressCallback OnFileTransferProgressCallback
}

type QueryFileCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
}

func (*QueryFileCallbackInfo) CallbackID() callback.ID { return eos.PlayerDataStorageQueryFileCallback }

type QueryFileListCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
	FileCount   int
}

func (*QueryFileListCallbackInfo) CallbackID() callback.ID {
	return eos.PlayerDataStorageQueryFileListCallback
}

type DuplicateFileCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
}

func (*DuplicateFileCallbackInfo) CallbackID() callback.ID {
	return eos.PlayerDataStorageDuplicateFileCallback
}

type DeleteFileCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
}

func (*DeleteFileCallbackInfo) CallbackID() callback.ID {
	return eos.PlayerDataStorageDeleteFileCallback
}

type ReadFileCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
	Filename    string
}

func (*ReadFileCallbackInfo) CallbackID() callback.ID { return eos.PlayerDataStorageReadFileCallback }

type WriteFileCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
	Filename    string
}

func (*WriteFileCallbackInfo) CallbackID() callback.ID { return eos.PlayerDataStorageWriteFileCallback }

type (
	OnQueryFileCompleteCallback     = func(*QueryFileCallbackInfo)
	OnQueryFileListCompleteCallback = func(*QueryFileListCallbackInfo)
	OnDuplicateFileCompleteCallback = func(*DuplicateFileCallbackInfo)
	OnDeleteFileCompleteCallback    = func(*DeleteFileCallbackInfo)
	OnReadFileCompleteCallback      = func(*ReadFileCallbackInfo)
	OnWriteFileCompleteCallback     = func(*WriteFileCallbackInfo)
)
