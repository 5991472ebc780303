package encryption

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"
)

// verifierToken is the plaintext sealed inside every age verifier.
const verifierToken = "orbit-password-verifier-v1"

// ageMaxWorkFactor is the highest work factor age accepts by default.
const ageMaxWorkFactor = 22

// AgeVerifier seals a fixed token with age's scrypt passphrase encryption.
// Verification succeeds when the token decrypts with the given passphrase.
type AgeVerifier struct {
	workFactor int
}

var _ Verifier = (*AgeVerifier)(nil)

// NewAgeVerifier creates an AgeVerifier. workFactor is the log2 scrypt cost;
// zero keeps the age default.
func NewAgeVerifier(workFactor int) *AgeVerifier {
	return &AgeVerifier{workFactor: workFactor}
}

func (v *AgeVerifier) NewVerifier(passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if v.workFactor > 0 {
		recipient.SetWorkFactor(v.workFactor)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, verifierToken); err != nil {
		return nil, fmt.Errorf("writing verifier: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing verifier: %w", err)
	}
	return buf.Bytes(), nil
}

func (v *AgeVerifier) Verify(verifier []byte, passphrase string) error {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt identity: %w", err)
	}
	if v.workFactor > ageMaxWorkFactor {
		identity.SetMaxWorkFactor(v.workFactor)
	}

	r, err := age.Decrypt(bytes.NewReader(verifier), identity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrongPassword, err)
	}
	token, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrongPassword, err)
	}
	if string(token) != verifierToken {
		return fmt.Errorf("%w: unexpected verifier contents", ErrWrongPassword)
	}
	return nil
}
