/*
Package ddb provides a DynamoDB implementation of the TableStore interface.

Each TableStore owns one table whose key schema is fixed:

	PartitionKey (S, HASH) + RowKey (S, RANGE)

Every row also carries two store-owned attributes, Timestamp (RFC 3339 string)
and ETag (opaque quoted token). They are rewritten on every successful write and
are never taken from the caller's value.

Key Features:

Typed access:
The store is generic over the row type. Callers name only the value type:

	store, err := ddb.NewTableStore[User](client, "users")
	added, err := store.AddEntity(ctx, User{...})

Conditional writes:
AddEntity is guarded by attribute_not_exists, so a second insert of the same
key pair fails with a conflict. UpdateEntity is guarded by the ETag of the
value it is given; pass storagemodels.ETagAny to skip the version check.

Querying:
QueryEntities issues a Query when the filter names a partition and a Scan
otherwise. Pages are followed until the table is exhausted:

	for u, err := range store.QueryEntities(ctx, &storagemodels.QueryFilter{PartitionKey: "Users"},
	    storagemodels.WithPageSize(100),
	) {
	    if err != nil {
	        return err
	    }
	    fmt.Println(u.RowKey)
	}

Errors:
Every failure is classified into the errors package taxonomy before it is
returned. Unclassified remote failures are wrapped as StoreUnavailable and keep
the SDK error reachable through errors.As.
*/
package ddb
