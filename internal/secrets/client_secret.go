package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups this app's secrets in the OS keychain.
	KeyringService = "keloke-trends"

	envClientSecret = "MELI_CLIENT_SECRET"
)

// GetClientSecret resolves the OAuth client secret: OS keyring first
// (recommended), MELI_CLIENT_SECRET env var as fallback for headless
// deployments without a keychain daemon.
func GetClientSecret(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		secret, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(secret) != "" {
			return secret, nil
		}
	}

	if v := strings.TrimSpace(os.Getenv(envClientSecret)); v != "" {
		return v, nil
	}

	return "", errors.New("OAuth client secret not found (set it in the keychain or via MELI_CLIENT_SECRET)")
}

func SetClientSecret(keyringAccount string, secret string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, secret)
}

func DeleteClientSecret(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}
