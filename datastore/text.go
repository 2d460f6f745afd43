/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/suparena/storagegateway/errors"
)

// LookupEncoding resolves an encoding label such as "utf-8", "utf-16le" or
// "iso-8859-1". The empty label means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.NewValidationError("encoding", fmt.Sprintf("unsupported encoding %q", name))
	}
	return enc, nil
}

// DecodeText decodes a whole blob body with the named encoding.
// Invalid byte sequences become U+FFFD rather than failing the download.
func DecodeText(data []byte, encodingName string) (string, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode blob as %s: %w", encodingName, err)
	}
	return string(out), nil
}
