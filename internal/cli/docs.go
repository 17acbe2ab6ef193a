package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backoffice/internal/blob"
	"github.com/mesh-intelligence/backoffice/internal/session"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

func (a *app) docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage uploaded documents",
		Long: `Documents are files in the blob directory under "` + blob.DefaultPrefix + `/".
Use "backoffice list documents" to search, filter and sort them.`,
	}
	cmd.AddCommand(a.docsUploadCmd(), a.docsRmCmd(), a.docsURLCmd())
	return cmd
}

func (a *app) docsUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files as documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			docs, err := a.documents()
			if err != nil {
				return err
			}
			uploaded := make([]map[string]any, 0, len(args))
			for _, name := range args {
				doc, err := uploadFile(cmd, docs, name)
				if err != nil {
					return err
				}
				a.log.Infof("uploaded %s as %s", name, doc.Path)
				uploaded = append(uploaded, map[string]any{
					"path":       doc.Path,
					"file_name":  doc.FileName,
					"size":       doc.Size,
					"public_url": doc.PublicURL,
				})
				if !a.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s) %s\n", doc.Path, types.FormatBytes(doc.Size), doc.PublicURL)
				}
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), uploaded)
			}
			return nil
		},
	}
}

func uploadFile(cmd *cobra.Command, docs *blob.Documents, name string) (types.Document, error) {
	f, err := os.Open(name)
	if err != nil {
		return types.Document{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	doc, err := docs.Upload(cmd.Context(), filepath.Base(name), f)
	if err != nil {
		return types.Document{}, sysError(fmt.Errorf("upload %s: %w", name, err))
	}
	return doc, nil
}

func (a *app) docsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			docs, err := a.documents()
			if err != nil {
				return err
			}
			for _, p := range args {
				if err := docs.Delete(ctx, p); err != nil {
					return err
				}
				if !a.jsonMode {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", p)
				}
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"removed": args})
			}
			return nil
		},
	}
}

func (a *app) docsURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <path>",
		Short: "Print the public URL of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authorize(cmd.Context(), session.AreaUser); err != nil {
				return err
			}
			p, err := blob.CleanPath(args[0])
			if err != nil {
				return err
			}
			docs, err := a.documents()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), docs.PublicURL(p))
			return nil
		},
	}
}
