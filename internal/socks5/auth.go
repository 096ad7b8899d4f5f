package socks5

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator is the username/password verification capability used by
// the sub-negotiation phase (§4.4). Implementations must be pure (no I/O
// beyond the comparison itself) and safe for concurrent use: the same
// Authenticator is shared by reference across every connection the server
// accepts for the lifetime of the process.
type Authenticator interface {
	Authenticate(user, pass string) bool
}

// AuthenticatorFunc adapts a plain function to the Authenticator interface.
type AuthenticatorFunc func(user, pass string) bool

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(user, pass string) bool { return f(user, pass) }

// StaticCredentials is a plaintext username -> password authenticator
// using constant-time comparison.
//
// Deprecated: prefer HashedCredentials, which never holds a cleartext
// password in memory for comparisons.
type StaticCredentials map[string]string

// dummyHash is compared against on unknown usernames so that a lookup miss
// costs the same time as a lookup hit, preventing username enumeration via
// timing.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Authenticate implements Authenticator.
func (s StaticCredentials) Authenticate(user, pass string) bool {
	want, ok := s[user]
	if !ok {
		subtle.ConstantTimeCompare([]byte(pass), []byte(pass))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(pass)) == 1
}

// HashedCredentials is a username -> bcrypt-hash authenticator. This is the
// recommended store: the server never needs to hold a cleartext secret.
type HashedCredentials map[string]string

// Authenticate implements Authenticator.
func (h HashedCredentials) Authenticate(user, pass string) bool {
	hash, ok := h[user]
	if !ok {
		// Run a dummy comparison so an unknown username takes the same time
		// as a wrong password for a known one.
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(pass))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
}

// HashPassword bcrypt-hashes pass at the package's default cost, for
// populating a HashedCredentials store.
func HashPassword(pass string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
