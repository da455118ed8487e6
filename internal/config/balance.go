package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"pizzawars/internal/game"
)

// LoadBalance returns the default economy with the YAML file at path laid
// over it. An empty path yields the defaults unchanged.
func LoadBalance(path string) (game.Balance, error) {
	b := game.DefaultBalance()
	if path == "" {
		return b, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return b, fmt.Errorf("open balance file: %w", err)
	}
	defer f.Close()
	return DecodeBalance(f)
}

func DecodeBalance(r io.Reader) (game.Balance, error) {
	b := game.DefaultBalance()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return b, fmt.Errorf("decode balance: %w", err)
	}
	if err := b.Validate(); err != nil {
		return b, fmt.Errorf("invalid balance: %w", err)
	}
	return b, nil
}
