package session

import "time"

// UserSession is one user's stored platform credential. The Credential field
// holds the sealed (encrypted) exported session blob, never the plaintext.
type UserSession struct {
	UserID     int64
	Credential []byte
	UpdatedAt  time.Time
}
