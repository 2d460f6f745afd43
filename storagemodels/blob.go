/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// UploadOptions are passed through verbatim to the blob store.
// A nil Metadata map or an empty ContentType means "use store defaults".
type UploadOptions struct {
	Metadata    map[string]string
	ContentType string
}

// UpdateMode selects how UpdateEntity treats the stored row.
type UpdateMode int

const (
	// UpdateReplace overwrites every attribute of the stored row.
	UpdateReplace UpdateMode = iota
	// UpdateMerge only writes the attributes present on the entity.
	UpdateMerge
)

// ETagAny matches whatever version is stored, making an update unconditional.
const ETagAny = "*"
