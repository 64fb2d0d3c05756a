// Package auth contains session-related use cases.
package auth

// SessionResetter ends the current account session.
type SessionResetter interface {
	Reset(reason string)
}
