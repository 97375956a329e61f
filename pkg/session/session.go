// Package session holds the signed-in state of the single library user.
//
// Sign-in follows the device-code shape of the cloud service: the user types
// the eight character code shown on the pairing page and receives a device
// token and a user token. There is no real token exchange; both tokens are
// minted locally. The session is persisted in a kv.Store under two keys so it
// survives a restart.
package session

import (
	"time"
)

// Storage keys of the persisted session.
const (
	TokensKey = "rmapi-tokens"
	UserKey   = "rmapi-user"
)

// Defaults for the locally minted profile.
const (
	DefaultEmail       = "user@example.com"
	DefaultSyncVersion = "1.5"
)

// DeviceCodeLength is the length of a device code after normalisation.
const DeviceCodeLength = 8

// Credentials are the two tokens of a session, stored under TokensKey.
type Credentials struct {
	// DeviceToken identifies the paired device: device_<CODE>_<unix ms>
	DeviceToken string `json:"deviceToken" validate:"required,startswith=device_"`

	// UserToken is a signed JWT carrying the profile claims
	UserToken string `json:"userToken" validate:"required,jwt"`
}

// Profile describes the signed-in account, stored under UserKey.
type Profile struct {
	Email       string `json:"email" validate:"required,email"`
	SyncVersion string `json:"syncVersion" validate:"required"`
}

// Session is a signed-in state.
type Session struct {
	Credentials Credentials `json:"credentials"`
	Profile     Profile     `json:"profile"`

	// IssuedAt is read back from the user token
	IssuedAt time.Time `json:"issuedAt"`
}
