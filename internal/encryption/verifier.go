// Package encryption provides the password verifiers the log database stores
// for users and password-protected channels.
package encryption

import "errors"

// ErrWrongPassword is returned (wrapped) by Verify when the passphrase does
// not match the verifier.
var ErrWrongPassword = errors.New("wrong password")

// Verifier creates and checks opaque password verifiers. A verifier never
// contains the passphrase in a recoverable form, except for TestVerifier.
type Verifier interface {
	// NewVerifier derives a verifier for passphrase.
	NewVerifier(passphrase string) ([]byte, error)

	// Verify checks passphrase against a verifier from NewVerifier.
	Verify(verifier []byte, passphrase string) error
}
