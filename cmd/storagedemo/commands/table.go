/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/storagemodels"
)

func newTableCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Work with user rows in the structured store",
	}
	cmd.AddCommand(
		newTableAddCmd(a),
		newTableGetCmd(a),
		newTableQueryCmd(a),
		newTableUpdateCmd(a),
		newTableDeleteCmd(a),
	)
	return cmd
}

func newTableAddCmd(a *app) *cobra.Command {
	var user User
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			users, err := a.users(ctx)
			if err != nil {
				return err
			}
			if err := users.EnsureTableExists(ctx); err != nil {
				return err
			}
			if user.RowKey == "" {
				user.RowKey = a.newRowKey()
			}
			added, err := users.AddEntity(ctx, user)
			if err != nil {
				a.failure("Error inserting user: %v", err)
				return err
			}
			a.success("User inserted successfully")
			fmt.Fprintln(a.out, added)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.PartitionKey, "partition", "Users", "partition key")
	cmd.Flags().StringVar(&user.RowKey, "row", "", "row key (default a new UUID)")
	cmd.Flags().StringVar(&user.Name, "name", "", "display name")
	cmd.Flags().StringVar(&user.Email, "email", "", "email address")
	return cmd
}

func newTableGetCmd(a *app) *cobra.Command {
	var partition string
	cmd := &cobra.Command{
		Use:   "get ROW_KEY",
		Short: "Fetch one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.users(cmd.Context())
			if err != nil {
				return err
			}
			u, err := users.GetEntity(cmd.Context(), partition, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, u)
			fmt.Fprintf(a.out, "%s %s\n", a.styles.label.Render("ETag:"), u.ETag)
			fmt.Fprintf(a.out, "%s %s\n", a.styles.label.Render("Timestamp:"), u.Timestamp)
			return nil
		},
	}
	cmd.Flags().StringVar(&partition, "partition", "Users", "partition key")
	return cmd
}

func newTableQueryCmd(a *app) *cobra.Command {
	var (
		partition string
		where     []string
		pageSize  int32
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List users, optionally filtered",
		Example: `  storagedemo table query
  storagedemo table query --partition Users --where Name=John`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := &storagemodels.QueryFilter{PartitionKey: partition}
			if len(where) > 0 {
				filter.Attributes = make(map[string]any, len(where))
				for _, w := range where {
					name, value, ok := strings.Cut(w, "=")
					if !ok || name == "" {
						return errors.NewValidationError("where", fmt.Sprintf("expected NAME=VALUE, got %q", w))
					}
					filter.Attributes[name] = value
				}
			}

			users, err := a.users(cmd.Context())
			if err != nil {
				return err
			}
			count := 0
			for u, err := range users.QueryEntities(cmd.Context(), filter, storagemodels.WithPageSize(pageSize)) {
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, u)
				count++
			}
			fmt.Fprintln(a.out, a.styles.label.Render(fmt.Sprintf("%d user(s)", count)))
			return nil
		},
	}
	cmd.Flags().StringVar(&partition, "partition", "", "only rows in this partition")
	cmd.Flags().StringArrayVar(&where, "where", nil, "NAME=VALUE attribute equality (repeatable)")
	cmd.Flags().Int32Var(&pageSize, "page-size", 0, "rows per store round trip (0 lets the store decide)")
	return cmd
}

func newTableUpdateCmd(a *app) *cobra.Command {
	var (
		partition, name, email, etag string
		merge                        bool
	)
	cmd := &cobra.Command{
		Use:   "update ROW_KEY",
		Short: "Change a user's name or email",
		Long: `update rewrites a stored user. With --etag the write only succeeds while
the stored row still carries that ETag; the default "*" matches any version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			users, err := a.users(ctx)
			if err != nil {
				return err
			}
			current, err := users.GetEntity(ctx, partition, args[0])
			if err != nil {
				return err
			}
			next := *current
			next.ETag = etag
			if cmd.Flags().Changed("name") {
				next.Name = name
			}
			if cmd.Flags().Changed("email") {
				next.Email = email
			}
			mode := storagemodels.UpdateReplace
			if merge {
				mode = storagemodels.UpdateMerge
			}
			updated, err := users.UpdateEntity(ctx, next, mode)
			if err != nil {
				a.failure("Error updating user: %v", err)
				return err
			}
			a.success("User updated successfully")
			fmt.Fprintln(a.out, updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&partition, "partition", "Users", "partition key")
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&etag, "etag", storagemodels.ETagAny, "expected ETag of the stored row")
	cmd.Flags().BoolVar(&merge, "merge", false, "merge into the stored row instead of replacing it")
	return cmd
}

func newTableDeleteCmd(a *app) *cobra.Command {
	var partition string
	cmd := &cobra.Command{
		Use:   "delete ROW_KEY",
		Short: "Delete a user; deleting a missing user succeeds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.users(cmd.Context())
			if err != nil {
				return err
			}
			if err := users.DeleteEntity(cmd.Context(), partition, args[0]); err != nil {
				return err
			}
			a.success("User deleted successfully")
			return nil
		},
	}
	cmd.Flags().StringVar(&partition, "partition", "Users", "partition key")
	return cmd
}
