package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// builtinDefaults is written on first run when no packaged default config
// exists next to the binary.
const builtinDefaults = `app:
  port: 8430
  data_dir: ""

marketplace:
  api_base: https://api.mercadolibre.com
  country: CL
  user_agent: keloke-trends-worker/1.0
  requests_per_sec: 2
  burst: 4

worker:
  batch: 5
  limit: 50
  run_seconds: 0

oauth:
  client_id: ""
  keyring_account: ""
`

// EnsureUserConfig makes sure dataDir holds a config.yml and returns its
// path. An existing file is left alone; otherwise the packaged default at
// defaultPath is copied in, or the built-in defaults are written when no
// packaged file ships with the deployment.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	src, err := os.Open(defaultPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if werr := os.WriteFile(userPath, []byte(builtinDefaults), 0o644); werr != nil {
				return "", werr
			}
			return userPath, nil
		}
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(userPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return userPath, nil
}
