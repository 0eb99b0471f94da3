package server

import "crypto/rand"

const (
	saltLength   = 16
	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewSalt draws a fresh 16-character alphanumeric verification salt. The
// salt lives for one server run; heartbeats publish it and the login
// handshake checks md5(salt + username) against the client's key.
func NewSalt() string {
	raw := make([]byte, saltLength)
	rand.Read(raw)

	out := make([]byte, saltLength)
	for i, b := range raw {
		out[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}
	return string(out)
}
