// Package credentials loads the archive.org S3-style access/secret pair
// from the INI credentials file at ~/.ia (spec §6).
package credentials

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-ini/ini"

	"github.com/ROpdebee/CAA-Auditor/internal/remote"
)

// ErrMissingSection is returned when the credentials file has no [s3] section.
var ErrMissingSection = errors.New("credentials file missing [s3] section")

// ErrMissingKeys is returned when [s3] is present but lacks access/secret.
var ErrMissingKeys = errors.New("credentials file [s3] section missing access/secret keys")

// DefaultPath returns ~/.ia.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ia"), nil
}

// Load parses the INI credentials file at path.
func Load(path string) (remote.Credentials, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return remote.Credentials{}, err
	}

	if !cfg.HasSection("s3") {
		return remote.Credentials{}, ErrMissingSection
	}
	sec := cfg.Section("s3")
	if !sec.HasKey("access") || !sec.HasKey("secret") {
		return remote.Credentials{}, ErrMissingKeys
	}

	return remote.Credentials{
		Access: sec.Key("access").String(),
		Secret: sec.Key("secret").String(),
	}, nil
}
