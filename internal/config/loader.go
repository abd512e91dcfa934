package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileSystem is the file access used by the loader.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error and yields the defaults.
func Load(path string) (*Config, error) {
	return LoadFS(OSFS{}, path, false)
}

// LoadRequired is like Load but reports ErrFileNotFound for a missing file.
func LoadRequired(path string) (*Config, error) {
	return LoadFS(OSFS{}, path, true)
}

// LoadFS reads the TOML file at path from fsys over the defaults.
func LoadFS(fsys FileSystem, path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if required {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode strictly unmarshals data into cfg, keeping values absent from
// data untouched.
func decode(source string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}

		var derr *toml.DecodeError
		var serr *toml.StrictMissingError
		switch {
		case errors.As(err, &derr):
			perr.Line, perr.Column = derr.Position()
		case errors.As(err, &serr) && len(serr.Errors) > 0:
			perr.Line, perr.Column = serr.Errors[0].Position()
			perr.Message = fmt.Sprintf("unknown key %q", strings.Join(serr.Errors[0].Key(), "."))
		}
		return perr
	}
	return nil
}
