package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DotEnvFile is the name of the optional env file read from the settings directory.
const DotEnvFile = ".env"

// Load builds the settings from defaults, the file at path, a .env file in
// the same directory and DESKKIT_* environment variables, then validates them.
// An empty path or a missing file skips the file layers.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		if err := loadFile(path, &s); err != nil {
			return s, err
		}
		if err := loadDotEnv(filepath.Join(filepath.Dir(path), DotEnvFile)); err != nil {
			return s, &LoadError{Path: path, Stage: "dotenv", Err: err}
		}
	}

	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix}); err != nil {
		return s, &LoadError{Path: path, Stage: "env", Err: err}
	}

	if err := s.Validate(); err != nil {
		return s, &LoadError{Path: path, Stage: "validate", Err: err}
	}
	return s, nil
}

// loadFile decodes the settings file over s. A missing file is ignored.
func loadFile(path string, s *Settings) error {
	decode, err := decoderFor(path)
	if err != nil {
		return &LoadError{Path: path, Stage: "decode", Err: err}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &LoadError{Path: path, Stage: "read", Err: err}
	}

	if err := decode(b, s); err != nil {
		return &LoadError{Path: path, Stage: "decode", Err: err}
	}
	return nil
}

// decoderFor picks the decoder for the file extension.
func decoderFor(path string) (func([]byte, any) error, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return toml.Unmarshal, nil
	case ".yaml", ".yml":
		return yaml.Unmarshal, nil
	case ".json":
		return json.Unmarshal, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// loadDotEnv exports the variables in path that are not already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
