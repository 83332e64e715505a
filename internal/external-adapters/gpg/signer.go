package gpg

import (
	"context"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer writes armored detached signatures with a single private key
type Signer struct {
	entity *openpgp.Entity
}

// NewSignerFromFile loads the first private key found in keyPath. Encrypted
// keys are unlocked with passphrase.
func NewSignerFromFile(keyPath string, passphrase []byte) (*Signer, error) {
	entities, err := readKeyFile(keyPath)
	if err != nil {
		return nil, err
	}

	var signer *openpgp.Entity
	for _, entity := range entities {
		if entity.PrivateKey != nil {
			signer = entity
			break
		}
	}
	if signer == nil {
		return nil, fmt.Errorf("no private key found in %s", keyPath)
	}

	if err := unlock(signer, passphrase); err != nil {
		return nil, err
	}

	return &Signer{entity: signer}, nil
}

// Fingerprint returns the upper-case hex fingerprint of the signing key
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}

// SignDetached writes filePath.asc and returns its path
func (s *Signer) SignDetached(ctx context.Context, filePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	//nolint:gosec // G304: filePath is an artifact produced by this build
	data, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer data.Close()

	sigPath := filePath + ".asc"
	//nolint:gosec // G304: sigPath is derived from the artifact path
	out, err := os.OpenFile(sigPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create signature file: %w", err)
	}

	if err := openpgp.ArmoredDetachSign(out, s.entity, data, nil); err != nil {
		_ = out.Close()
		_ = os.Remove(sigPath)
		return "", fmt.Errorf("failed to sign %s: %w", filePath, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write signature file: %w", err)
	}

	return sigPath, nil
}

func unlock(entity *openpgp.Entity, passphrase []byte) error {
	if entity.PrivateKey != nil && entity.PrivateKey.Encrypted {
		if len(passphrase) == 0 {
			return fmt.Errorf("private key is encrypted and no passphrase was given")
		}
		if err := entity.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}

	for _, subkey := range entity.Subkeys {
		if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
			if err := subkey.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("failed to decrypt subkey: %w", err)
			}
		}
	}

	return nil
}
