/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/storagemodels"
)

const (
	maxKeyBytes      = 1024
	maxBlobNameBytes = 1024
)

var (
	tableNamePattern     = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,255}$`)
	containerNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
)

// ValidateKey checks a PartitionKey or RowKey value.
// Keys must be non-empty, at most 1 KiB, and free of '/', '\', '#', '?' and control characters.
func ValidateKey(field, value string) error {
	if value == "" {
		return errors.NewValidationError(field, "must not be empty")
	}
	if len(value) > maxKeyBytes {
		return errors.NewValidationError(field, "must be at most 1024 bytes")
	}
	if !utf8.ValidString(value) {
		return errors.NewValidationError(field, "must be valid UTF-8")
	}
	for _, r := range value {
		switch {
		case r == '/' || r == '\\' || r == '#' || r == '?':
			return errors.NewValidationError(field, "must not contain '/', '\\', '#' or '?'")
		case unicode.IsControl(r):
			return errors.NewValidationError(field, "must not contain control characters")
		}
	}
	return nil
}

// ValidateEntityKeys validates both halves of an entity key.
func ValidateEntityKeys(partitionKey, rowKey string) error {
	if err := ValidateKey(storagemodels.PartitionKeyAttr, partitionKey); err != nil {
		return err
	}
	return ValidateKey(storagemodels.RowKeyAttr, rowKey)
}

// ValidateTableName checks a table name against the DynamoDB naming rules.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return errors.NewValidationError("table", "must be 3-255 characters of [A-Za-z0-9_.-]")
	}
	return nil
}

// ValidateContainerName checks a container name against bucket naming rules.
func ValidateContainerName(name string) error {
	if !containerNamePattern.MatchString(name) {
		return errors.NewValidationError("container", "must be 3-63 lowercase letters, digits, '.' or '-', starting and ending with a letter or digit")
	}
	if strings.Contains(name, "..") {
		return errors.NewValidationError("container", "must not contain consecutive periods")
	}
	return nil
}

// ValidateBlobName checks a blob name.
func ValidateBlobName(name string) error {
	if name == "" {
		return errors.NewValidationError("blob", "must not be empty")
	}
	if len(name) > maxBlobNameBytes {
		return errors.NewValidationError("blob", "must be at most 1024 bytes")
	}
	if !utf8.ValidString(name) {
		return errors.NewValidationError("blob", "must be valid UTF-8")
	}
	return nil
}

// ValidateBlobRef validates a container and blob name pair.
func ValidateBlobRef(container, blobName string) error {
	if err := ValidateContainerName(container); err != nil {
		return err
	}
	return ValidateBlobName(blobName)
}
