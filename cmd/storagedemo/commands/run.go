/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suparena/storagegateway/storagemodels"
)

const defaultContent = "Hello from Blob Storage!"

func newRunCmd(a *app) *cobra.Command {
	var (
		content    string
		deleteBlob bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Insert and list a user, then upload and read back a blob",
		Long: `run walks through both stores once: it ensures the table exists,
inserts a user with a fresh row key, lists every user, then uploads a text
blob and downloads it again. A failing step is reported and the walk goes on.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := a.runTable(cmd.Context())
			failed += a.runBlob(cmd.Context(), content, deleteBlob)
			if failed > 0 {
				return fmt.Errorf("%d demo step(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", defaultContent, "text to upload")
	cmd.Flags().BoolVar(&deleteBlob, "delete", false, "delete the blob afterwards")
	return cmd
}

func (a *app) runTable(ctx context.Context) int {
	fmt.Fprintln(a.out, a.styles.title.Render("🚀 Starting table storage example..."))

	users, err := a.users(ctx)
	if err != nil {
		a.failure("Error opening table: %v", err)
		return 1
	}
	if err := users.EnsureTableExists(ctx); err != nil {
		a.failure("Error ensuring table %s: %v", a.cfg.Table.Name, err)
		return 1
	}

	failed := 0
	user := User{TableEntity: storagemodels.TableEntity{PartitionKey: "Users", RowKey: a.newRowKey()}}
	if _, err := users.AddEntity(ctx, user); err != nil {
		a.failure("Error inserting user: %v", err)
		failed++
	} else {
		a.success("User inserted successfully")
	}

	for u, err := range users.QueryEntities(ctx, nil) {
		if err != nil {
			a.failure("Error querying users: %v", err)
			return failed + 1
		}
		fmt.Fprintln(a.out, u)
	}
	return failed
}

func (a *app) runBlob(ctx context.Context, content string, deleteBlob bool) int {
	fmt.Fprintln(a.out, a.styles.title.Render("🚀 Starting blob storage example..."))

	container, name := a.cfg.Blob.Container, a.cfg.Blob.Name
	err := func() error {
		blobs, err := a.blobs(ctx)
		if err != nil {
			return err
		}
		if err := blobs.EnsureContainerExists(ctx, container); err != nil {
			return err
		}
		if err := blobs.UploadFromStream(ctx, container, name, strings.NewReader(content), true, nil); err != nil {
			return err
		}
		a.success("Blob uploaded successfully")

		text, err := blobs.DownloadAsText(ctx, container, name, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s %s\n", a.styles.label.Render("Blob content:"), text)

		if deleteBlob {
			if err := blobs.DeleteBlob(ctx, container, name); err != nil {
				return err
			}
			a.success("Blob deleted successfully")
		}
		return nil
	}()
	if err != nil {
		a.failure("Blob operation error: %v", err)
		return 1
	}
	return 0
}
