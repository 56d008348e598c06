package event

import "time"

// Topics published by the emulator.
const (
	// ReloadConfig carries the freshly loaded *settings.Settings after the
	// settings file changes on disk.
	ReloadConfig = "ReloadConfig"

	// LoginStatusChanged carries an auth status change for observers outside
	// the frame pump (the tester's console, metrics).
	LoginStatusChanged = "LoginStatusChanged"
)

// Subscriber handles one published value. Subscribers run concurrently.
type Subscriber func(param any)

// Topic is the subscription list for a single topic.
type Topic struct {
	timeout     time.Duration
	subscribers []Subscriber
}
