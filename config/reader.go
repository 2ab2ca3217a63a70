package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
)

// Read reads a query config from a JSON file, expanding environment variables first.
// Fields missing from the file keep their defaults.
func Read(filePath string) (*QueryConfig, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(bytes.NewReader(buf))
}

// FromReader reads a query config from JSON.
func FromReader(r io.Reader) (*QueryConfig, error) {
	conf := DefaultQueryConfig()
	if err := json.NewDecoder(r).Decode(conf); err != nil {
		return nil, errors.Wrap(err, "failed to decode query config from json")
	}
	if err := conf.Validate("query"); err != nil {
		return nil, errors.Wrap(err, "invalid query config")
	}
	return conf, nil
}
