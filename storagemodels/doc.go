/*
Package storagemodels defines the data structures shared by every gateway.

Key Types:

Entity and TableEntity:
Rows are plain structs that embed TableEntity:

	type User struct {
	    storagemodels.TableEntity
	    Email string `dynamodbav:"Email"`
	}

The embedded struct supplies PartitionKey, RowKey and the store-owned Timestamp
and ETag, which together satisfy the Entity capability set.

QueryFilter:
Optional scoping for QueryEntities:

	filter := &QueryFilter{
	    PartitionKey: "Users",
	    Attributes:   map[string]any{"Active": true},
	}

QueryOptions:
Configuration for how a query walks store pages:

	opts := []QueryOption{
	    WithPageSize(25),
	    WithProgressHandler(progressFunc),
	}

UploadOptions:
Metadata and content type handed to the blob store as-is.
*/
package storagemodels
