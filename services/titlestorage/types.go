package titlestorage

import (
	"github.com/linchenxuan/eosemu/callback"
	"github.com/linchenxuan/eosemu/eos"
	"github.com/linchenxuan/eosemu/storage"
)

// ReadResult is what the data callback tells the transfer to do next.
type ReadResult = storage.ReadResult

const (
	ReadContinue = storage.ReadContinue
	ReadFail     = storage.ReadFail
	ReadCancel   = storage.ReadCancel
)

// FileMetadata describes one title file.
type FileMetadata struct {
	FileSizeBytes int64
	MD5Hash       string
	Filename      string
}

func metadataFrom(md storage.Metadata) *FileMetadata {
	return &FileMetadata{FileSizeBytes: md.Size, MD5Hash: md.MD5Hash, Filename: md.Filename}
}

type QueryFileOptions struct {
	LocalUserID eos.ProductUserID
	Filename    string
}

type QueryFileListOptions struct {
	LocalUserID eos.ProductUserID
	ListOfTags  []string
}

// ReadFileDataCallbackInfo is handed to the data callback once per chunk.
type ReadFileDataCallbackInfo struct {
	ClientData         any
	LocalUserID        eos.ProductUserID
	Filename           string
	TotalFileSizeBytes int64
	IsLastChunk        bool
	DataChunk          []byte
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
	OnFileTransferProgressCallback = func(*FileTransferProgressCallbackInfo)
)

type ReadFileOptions struct {
	LocalUserID                  eos.ProductUserID
	Filename                     string
	ReadChunkLengthBytes         int
	ReadFileDataCallback         OnReadFileDataCallback
	FileTransferProgressCallback OnFileTransferProgressCallback
}

type QueryFileCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
}

func (*QueryFileCallbackInfo) CallbackID() callback.ID { return eos.TitleStorageQueryFileCallback }

type QueryFileListCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
	FileCount   int
}

func (*QueryFileListCallbackInfo) CallbackID() callback.ID {
	return eos.TitleStorageQueryFileListCallback
}

type ReadFileCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
	Filename    string
}

func (*ReadFileCallbackInfo) CallbackID() callback.ID { return eos.TitleStorageReadFileCallback }

type DeleteCacheCallbackInfo struct {
	ResultCode  eos.Result
	ClientData  any
	LocalUserID eos.ProductUserID
}

func (*DeleteCacheCallbackInfo) CallbackID() callback.ID { return eos.TitleStorageDeleteCacheCallback }

type (
	OnQueryFileCompleteCallback     = func(*QueryFileCallbackInfo)
	OnQueryFileListCompleteCallback = func(*QueryFileListCallbackInfo)
	OnReadFileCompleteCallback      = func(*ReadFileCallbackInfo)
	OnDeleteCacheCompleteCallback   = func(*DeleteCacheCallbackInfo)
)
