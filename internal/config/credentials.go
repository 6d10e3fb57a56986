package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/extremevalue/quantvalid/internal/errs"
)

// Credentials is the remote engine's auth pair, read from
// config.backtest.credentials_path (§6) — never embedded in config.<ext>
// itself, since that file is expected to live under version control.
type Credentials struct {
	Token  string `yaml:"token"`
	UserID string `yaml:"user_id"`
}

// LoadCredentials reads and parses the credentials file at path.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, errs.Wrap(errs.ErrConfiguration, fmt.Sprintf("reading credentials %s: %s", path, err))
	}
	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Credentials{}, errs.Wrap(errs.ErrConfiguration, fmt.Sprintf("parsing credentials %s: %s", path, err))
	}
	if c.Token == "" || c.UserID == "" {
		return Credentials{}, errs.Wrap(errs.ErrConfiguration, fmt.Sprintf("credentials %s missing token or user_id", path))
	}
	return c, nil
}
