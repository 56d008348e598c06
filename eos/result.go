// Package eos holds the vocabulary shared by every emulated service: the
// result-code enumeration, account identifiers and login states.
package eos

import "strconv"

// Result is the SDK-wide result code. Synchronous calls return it and async
// calls embed it in their callback payload.
type Result int32

const (
	Success                                    Result = 0
	NoConnection                               Result = 1
	InvalidCredentials                         Result = 2
	InvalidUser                                Result = 3
	InvalidAuth                                Result = 4
	AccessDenied                               Result = 5
	MissingPermissions                         Result = 6
	TokenNotAccount                            Result = 7
	TooManyRequests                            Result = 8
	AlreadyPending                             Result = 9
	InvalidParameters                          Result = 10
	InvalidRequest                             Result = 11
	UnrecognizedResponse                       Result = 12
	IncompatibleVersion                        Result = 13
	NotConfigured                              Result = 14
	AlreadyConfigured                          Result = 15
	NotImplemented                             Result = 16
	Canceled                                   Result = 17
	NotFound                                   Result = 18
	OperationWillRetry                         Result = 19
	NoChange                                   Result = 20
	VersionMismatch                            Result = 21
	LimitExceeded                              Result = 22
	Disabled                                   Result = 23
	DuplicateNotAllowed                        Result = 24
	InvalidSandboxID                           Result = 26
	TimedOut                                   Result = 27
	PartialResult                              Result = 28
	InvalidProductUserID                       Result = 34
	ServiceFailure                             Result = 35
	InvalidState                               Result = 38
	RequestInProgress                          Result = 39
	AuthAccountLocked                          Result = 1001
	AuthInvalidToken                           Result = 1004
	AuthExpired                                Result = 1007
	PlayerDataStorageFilenameInvalid           Result = 5000
	PlayerDataStorageFilenameLengthInvalid     Result = 5001
	PlayerDataStorageFileSizeTooLarge          Result = 5003
	PlayerDataStorageFileSizeInvalid           Result = 5004
	PlayerDataStorageDataInvalid               Result = 5006
	PlayerDataStorageRequestInProgress         Result = 5009
	PlayerDataStorageUserErrorFromDataCallback Result = 5012
	ConnectInvalidToken                        Result = 7003
	ConnectUserAlreadyExists                   Result = 7001
	P2PConnectionFailed                        Result = 10200
	PresenceDataKeyLengthInvalid               Result = 15003
	PresenceDataValueLengthInvalid             Result = 15005
	PresenceRichTextLengthInvalid              Result = 15007
	UnexpectedError                            Result = 0x7FFFFFFF
)

var resultNames = map[Result]string{
	Success:                                    "EOS_Success",
	NoConnection:                               "EOS_NoConnection",
	InvalidCredentials:                         "EOS_InvalidCredentials",
	InvalidUser:                                "EOS_InvalidUser",
	InvalidAuth:                                "EOS_InvalidAuth",
	AccessDenied:                               "EOS_AccessDenied",
	MissingPermissions:                         "EOS_MissingPermissions",
	TokenNotAccount:                            "EOS_Token_Not_Account",
	TooManyRequests:                            "EOS_TooManyRequests",
	AlreadyPending:                             "EOS_AlreadyPending",
	InvalidParameters:                          "EOS_InvalidParameters",
	InvalidRequest:                             "EOS_InvalidRequest",
	UnrecognizedResponse:                       "EOS_UnrecognizedResponse",
	IncompatibleVersion:                        "EOS_IncompatibleVersion",
	NotConfigured:                              "EOS_NotConfigured",
	AlreadyConfigured:                          "EOS_AlreadyConfigured",
	NotImplemented:                             "EOS_NotImplemented",
	Canceled:                                   "EOS_Canceled",
	NotFound:                                   "EOS_NotFound",
	OperationWillRetry:                         "EOS_OperationWillRetry",
	NoChange:                                   "EOS_NoChange",
	VersionMismatch:                            "EOS_VersionMismatch",
	LimitExceeded:                              "EOS_LimitExceeded",
	Disabled:                                   "EOS_Disabled",
	DuplicateNotAllowed:                        "EOS_DuplicateNotAllowed",
	InvalidSandboxID:                           "EOS_InvalidSandboxId",
	TimedOut:                                   "EOS_TimedOut",
	PartialResult:                              "EOS_PartialResult",
	InvalidProductUserID:                       "EOS_InvalidProductUserID",
	ServiceFailure:                             "EOS_ServiceFailure",
	InvalidState:                               "EOS_InvalidState",
	RequestInProgress:                          "EOS_RequestInProgress",
	AuthAccountLocked:                          "EOS_Auth_AccountLocked",
	AuthInvalidToken:                           "EOS_Auth_InvalidToken",
	AuthExpired:                                "EOS_Auth_Expired",
	PlayerDataStorageFilenameInvalid:           "EOS_PlayerDataStorage_FilenameInvalid",
	PlayerDataStorageFilenameLengthInvalid:     "EOS_PlayerDataStorage_FilenameLengthInvalid",
	PlayerDataStorageFileSizeTooLarge:          "EOS_PlayerDataStorage_FileSizeTooLarge",
	PlayerDataStorageFileSizeInvalid:           "EOS_PlayerDataStorage_FileSizeInvalid",
	PlayerDataStorageDataInvalid:               "EOS_PlayerDataStorage_DataInvalid",
	PlayerDataStorageRequestInProgress:         "EOS_PlayerDataStorage_RequestInProgress",
	PlayerDataStorageUserErrorFromDataCallback: "EOS_PlayerDataStorage_UserErrorFromDataCallback",
	ConnectInvalidToken:                        "EOS_Connect_InvalidToken",
	ConnectUserAlreadyExists:                   "EOS_Connect_UserAlreadyExists",
	P2PConnectionFailed:                        "EOS_P2P_ConnectionFailed",
	PresenceDataKeyLengthInvalid:               "EOS_Presence_DataKeyLengthInvalid",
	PresenceDataValueLengthInvalid:             "EOS_Presence_DataValueLengthInvalid",
	PresenceRichTextLengthInvalid:              "EOS_Presence_RichTextLengthInvalid",
	UnexpectedError:                            "EOS_UnexpectedError",
}

// String returns the SDK name of r, as EOS_EResult_ToString does.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "EOS_Unknown(" + strconv.Itoa(int(r)) + ")"
}

// Complete reports whether r ends an operation. OperationWillRetry is the only
// non-terminal code.
func (r Result) Complete() bool {
	return r != OperationWillRetry
}
