// util/json.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DuplicateJSONKey represents a duplicate key found in JSON.
type DuplicateJSONKey struct {
	Path string // dotted path of the enclosing object, e.g. "flights.3"
	Key  string
}

// FindDuplicateJSONKeys scans JSON content and returns all duplicate
// object keys; encoding/json silently keeps the last one, which hides
// typos in hand-written scenarios.
func FindDuplicateJSONKeys(data []byte) []DuplicateJSONKey {
	dec := json.NewDecoder(bytes.NewReader(data))
	var dups []DuplicateJSONKey

	var walk func(path []string) error
	walk = func(path []string) error {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			return nil // scalar
		}

		switch delim {
		case '{':
			seen := make(map[string]bool)
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := kt.(string)
				if seen[key] {
					dups = append(dups, DuplicateJSONKey{Path: strings.Join(path, "."), Key: key})
				}
				seen[key] = true
				if err := walk(append(path, key)); err != nil {
					return err
				}
			}
		case '[':
			for i := 0; dec.More(); i++ {
				if err := walk(append(path, fmt.Sprintf("%d", i))); err != nil {
					return err
				}
			}
		}
		_, err = dec.Token() // closing delimiter
		return err
	}
	walk(nil)

	return dups
}

// UnmarshalJSONBytes unmarshals b into out, reporting the line and
// character of any error.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	err := json.Unmarshal(b, out)
	if err == nil {
		return nil
	}

	decodeOffset := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &serr):
		line, char := decodeOffset(serr.Offset)
		return fmt.Errorf("line %d, character %d: %w", line, char, err)
	case errors.As(err, &terr):
		line, char := decodeOffset(terr.Offset)
		return fmt.Errorf("line %d, character %d: %s value for %s.%s invalid for type %s: %w",
			line, char, terr.Value, terr.Struct, terr.Field, terr.Type.String(), err)
	default:
		return err
	}
}
