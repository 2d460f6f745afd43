/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	storeerrors "github.com/suparena/storagegateway/errors"
)

// classify maps a DynamoDB failure onto the gateway taxonomy.
// Conditional check failures are handled by the callers that set conditions.
// ResourceNotFoundException always names the table: a missing row comes back
// as an empty item instead.
func (d *TableStore[T, PT]) classify(op string, err error) error {
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return storeerrors.NewNotFoundError("table", d.tableName)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return storeerrors.NewValidationError("", apiErr.ErrorMessage())
	}

	return storeerrors.NewUnavailableError(op, err)
}
