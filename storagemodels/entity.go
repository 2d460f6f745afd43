/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"github.com/go-openapi/strfmt"
)

// Attribute names shared by every table backend.
const (
	PartitionKeyAttr = "PartitionKey"
	RowKeyAttr       = "RowKey"
	TimestampAttr    = "Timestamp"
	ETagAttr         = "ETag"
)

// Entity is the capability set every table row must expose.
type Entity interface {
	GetPartitionKey() string
	GetRowKey() string
	GetTimestamp() strfmt.DateTime
	GetETag() string
	// SetSystemProperties is called by a gateway after a successful write or read.
	SetSystemProperties(ts strfmt.DateTime, etag string)
}

// EntityPtr constrains PT to be *T and to satisfy Entity.
// Gateways are declared as Store[T any, PT EntityPtr[T]] so callers only name T.
type EntityPtr[T any] interface {
	*T
	Entity
}

// TableEntity carries the identity and system fields of a row.
// Embed it in a struct to make that struct usable with a TableStore.
//
// Timestamp and ETag are owned by the store: they are excluded from attribute
// marshalling and written by the gateway itself.
type TableEntity struct {
	PartitionKey string          `dynamodbav:"PartitionKey" json:"PartitionKey"`
	RowKey       string          `dynamodbav:"RowKey" json:"RowKey"`
	Timestamp    strfmt.DateTime `dynamodbav:"-" json:"Timestamp"`
	ETag         string          `dynamodbav:"-" json:"ETag,omitempty"`
}

func (e TableEntity) GetPartitionKey() string { return e.PartitionKey }

func (e TableEntity) GetRowKey() string { return e.RowKey }

func (e TableEntity) GetTimestamp() strfmt.DateTime { return e.Timestamp }

func (e TableEntity) GetETag() string { return e.ETag }

func (e *TableEntity) SetSystemProperties(ts strfmt.DateTime, etag string) {
	e.Timestamp = ts
	e.ETag = etag
}

// EntityKey renders a key pair for logs and error messages.
func EntityKey(partitionKey, rowKey string) string {
	return partitionKey + "/" + rowKey
}
