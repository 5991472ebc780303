package encryption

import (
	"fmt"

	"orbit-go/internal/config"
)

// NewVerifierFromConfig creates a Verifier based on the database verifier type.
func NewVerifierFromConfig(cfg config.DatabaseConfig) (Verifier, error) {
	switch cfg.Verifier {
	case "age", "":
		return NewAgeVerifier(cfg.ScryptWorkFactor), nil
	case "test":
		return TestVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown verifier type: %q", cfg.Verifier)
	}
}
