/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package s3blob

import (
	"errors"

	"github.com/aws/smithy-go"

	storeerrors "github.com/suparena/storagegateway/errors"
)

// classify maps an S3 failure onto the gateway taxonomy.
func classify(op, container, blobName string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return storeerrors.NewUnavailableError(op, err)
	}

	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		if blobName == "" {
			return storeerrors.NewNotFoundError("container", container)
		}
		return storeerrors.NewNotFoundError("blob", blobRef(container, blobName))
	case "NoSuchBucket":
		return storeerrors.NewNotFoundError("container", container)
	case "PreconditionFailed", "ConditionalRequestConflict":
		return storeerrors.NewAlreadyExistsError("blob", blobRef(container, blobName))
	case "BucketAlreadyExists":
		return storeerrors.NewAlreadyExistsError("container", container)
	case "InvalidBucketName", "KeyTooLongError", "InvalidArgument", "MetadataTooLarge":
		return storeerrors.NewValidationError("", apiErr.ErrorMessage())
	}
	return storeerrors.NewUnavailableError(op, err)
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return true
	}
	return false
}

func blobRef(container, blobName string) string {
	return container + "/" + blobName
}
