/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suparena/storagegateway/errors"
	"github.com/suparena/storagegateway/storagemodels"
)

func newBlobCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Work with blobs in the configured container",
	}
	cmd.AddCommand(
		newBlobUploadCmd(a),
		newBlobDownloadCmd(a),
		newBlobDeleteCmd(a),
	)
	return cmd
}

func newBlobUploadCmd(a *app) *cobra.Command {
	var (
		file, content, contentType string
		metadata                   map[string]string
		noOverwrite                bool
	)
	cmd := &cobra.Command{
		Use:   "upload BLOB_NAME",
		Short: "Upload text, a file, or stdin",
		Example: `  storagedemo blob upload hello.txt --content "Hello from Blob Storage!"
  storagedemo blob upload report.csv --file ./report.csv --content-type text/csv
  cat notes.txt | storagedemo blob upload notes.txt --file -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" && cmd.Flags().Changed("content") {
				return errors.NewValidationError("file", "--file and --content are mutually exclusive")
			}

			var data io.Reader = strings.NewReader(content)
			switch file {
			case "":
			case "-":
				data = cmd.InOrStdin()
			default:
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", file, err)
				}
				defer f.Close()
				data = f
			}

			ctx := cmd.Context()
			blobs, err := a.blobs(ctx)
			if err != nil {
				return err
			}
			if err := blobs.EnsureContainerExists(ctx, a.cfg.Blob.Container); err != nil {
				return err
			}
			opts := &storagemodels.UploadOptions{Metadata: metadata, ContentType: contentType}
			if err := blobs.UploadFromStream(ctx, a.cfg.Blob.Container, args[0], data, !noOverwrite, opts); err != nil {
				a.failure("Blob operation error: %v", err)
				return err
			}
			a.success("Blob uploaded successfully")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read the blob from this file (- for stdin)")
	cmd.Flags().StringVar(&content, "content", defaultContent, "blob text")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type stored with the blob")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "metadata entries, e.g. --meta owner=ops")
	cmd.Flags().BoolVar(&noOverwrite, "no-overwrite", false, "fail if the blob already exists")
	return cmd
}

func newBlobDownloadCmd(a *app) *cobra.Command {
	var encoding string
	cmd := &cobra.Command{
		Use:   "download BLOB_NAME",
		Short: "Print a blob decoded as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blobs, err := a.blobs(cmd.Context())
			if err != nil {
				return err
			}
			text, err := blobs.DownloadAsText(cmd.Context(), a.cfg.Blob.Container, args[0], encoding)
			if err != nil {
				a.failure("Blob operation error: %v", err)
				return err
			}
			fmt.Fprintf(a.out, "%s %s\n", a.styles.label.Render("Blob content:"), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", "", "text encoding label, e.g. utf-16le (default utf-8)")
	return cmd
}

func newBlobDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete BLOB_NAME",
		Short: "Delete a blob; deleting a missing blob succeeds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blobs, err := a.blobs(cmd.Context())
			if err != nil {
				return err
			}
			if err := blobs.DeleteBlob(cmd.Context(), a.cfg.Blob.Container, args[0]); err != nil {
				return err
			}
			a.success("Blob deleted successfully")
			return nil
		},
	}
}
