package eos

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// EpicAccountID identifies an Epic account. It is a 32 character lowercase
// hex string.
type EpicAccountID string

// ProductUserID identifies a user inside one product. Same form as
// EpicAccountID.
type ProductUserID string

// accountIDLength is the number of hex characters of a valid id.
const accountIDLength = 32

// NullUserID is the id the emulator hands out when no identity applies.
const NullUserID = "00000000000000000000000000000000"

func validHexID(s string) bool {
	if len(s) != accountIDLength || s == NullUserID {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Valid reports whether id is a well-formed, non-null account id.
func (id EpicAccountID) Valid() bool { return validHexID(string(id)) }

// Valid reports whether id is a well-formed, non-null product user id.
func (id ProductUserID) Valid() bool { return validHexID(string(id)) }

// ParseEpicAccountID normalizes s and validates it.
func ParseEpicAccountID(s string) (EpicAccountID, bool) {
	id := EpicAccountID(strings.ToLower(strings.TrimSpace(s)))
	return id, id.Valid()
}

// NewEpicAccountID returns a random account id.
func NewEpicAccountID() EpicAccountID {
	return EpicAccountID(compactUUID(uuid.New()))
}

// ProductUserIDFor derives the stable product user id of account epic inside
// product.
func ProductUserIDFor(product string, epic EpicAccountID) ProductUserID {
	return ProductUserID(compactUUID(uuid.NewMD5(uuid.NameSpaceOID, []byte(product+string(epic)))))
}

func compactUUID(u uuid.UUID) string {
	return hex.EncodeToString(u[:])
}

// LoginStatus is the login state of a local user.
type LoginStatus int32

const (
	NotLoggedIn       LoginStatus = 0
	UsingLocalProfile LoginStatus = 1
	LoggedIn          LoginStatus = 2
)

func (s LoginStatus) String() string {
	switch s {
	case NotLoggedIn:
		return "NotLoggedIn"
	case UsingLocalProfile:
		return "UsingLocalProfile"
	case LoggedIn:
		return "LoggedIn"
	default:
		return "Unknown"
	}
}

// NotificationID identifies a standing subscription. Zero is never issued.
type NotificationID uint64

// InvalidNotificationID is returned when a subscription could not be added.
const InvalidNotificationID NotificationID = 0
