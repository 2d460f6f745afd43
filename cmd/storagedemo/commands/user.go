/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"fmt"

	"github.com/suparena/storagegateway/storagemodels"
)

// User is the row type stored by the demo.
type User struct {
	storagemodels.TableEntity
	Name  string `dynamodbav:"Name,omitempty"`
	Email string `dynamodbav:"Email,omitempty"`
}

func (u *User) String() string {
	s := fmt.Sprintf("User: PartitionKey=%s, RowKey=%s", u.PartitionKey, u.RowKey)
	if u.Name != "" {
		s += ", Name=" + u.Name
	}
	if u.Email != "" {
		s += ", Email=" + u.Email
	}
	return s
}
