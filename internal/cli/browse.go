package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/backoffice/internal/blob"
	"github.com/mesh-intelligence/backoffice/internal/session"
	"github.com/mesh-intelligence/backoffice/internal/tui"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <collection>",
		Short: "Browse a collection interactively",
		Long: `Browse opens a terminal grid over the collection. Press ? for keys.

The documents browser reloads when files in the blob directory change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			if err := a.authorize(ctx, session.AreaUser); err != nil {
				return err
			}
			view, err := a.openView(ctx, name)
			if err != nil {
				return err
			}
			defer view.Close()

			opts := tui.Options{Title: "backoffice · " + name}
			if name == types.DocumentsCollection {
				changes := make(chan struct{}, 1)
				w, err := blob.NewWatcher(a.settings.BlobDir, func() {
					select {
					case changes <- struct{}{}:
					default:
					}
				}, func(err error) {
					a.log.Warnf("watch %s: %v", a.settings.BlobDir, err)
				}, blob.DefaultDebounce, nil)
				if err != nil {
					a.log.Warnf("watch %s: %v", a.settings.BlobDir, err)
				} else {
					defer w.Close()
					opts.Changes = changes
				}
			}

			if err := tui.Run(ctx, view, opts); err != nil {
				return fmt.Errorf("browse %s: %w", name, err)
			}
			return nil
		},
	}
}
