package encryption

import (
	"bytes"
	"fmt"
)

// testPrefix marks verifiers produced by TestVerifier.
var testPrefix = []byte("ORBITTEST\x00")

// TestVerifier is a deterministic verifier for testing. It stores the
// passphrase behind a fixed prefix and requires no crypto, so sessions open
// instantly in tests.
type TestVerifier struct{}

var _ Verifier = TestVerifier{}

func (TestVerifier) NewVerifier(passphrase string) ([]byte, error) {
	return append(append([]byte{}, testPrefix...), passphrase...), nil
}

func (TestVerifier) Verify(verifier []byte, passphrase string) error {
	if !bytes.HasPrefix(verifier, testPrefix) {
		return fmt.Errorf("%w: invalid test verifier", ErrWrongPassword)
	}
	if string(verifier[len(testPrefix):]) != passphrase {
		return ErrWrongPassword
	}
	return nil
}
