package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/controlplane"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/controlplane/handlers"
)

func init() {
	rootCmd.AddCommand(newWatchCmd())
}

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	var url string
	var authToken string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the folders of a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			if url == "" {
				url = "http://" + cfg.ControlPlane.Addr
			}
			if !cmd.Flag("token").Changed {
				authToken = cfg.ControlPlane.Token
			}

			return watchDaemon(cmd.Context(), cmd.OutOrStdout(), controlplane.NewClient(url, authToken), interval)
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 2*time.Second, "Poll interval")
	cmd.Flags().StringVar(&url, "url", "", "Control plane url (defaults to the configured address)")
	cmd.Flags().StringVarP(&authToken, "token", "t", "", "Control plane access token")
	return cmd
}

// watchDaemon prints the folder list whenever it changes
func watchDaemon(ctx context.Context, w io.Writer, c *controlplane.Client, interval time.Duration) error {
	// the first listing must reach the daemon
	last, err := renderFolders(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprint(w, last)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		out, err := renderFolders(ctx, c)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			fmt.Fprintf(w, "%s %s\n", red.Render("error"), err)
		case out != last:
			fmt.Fprintf(w, "%s\n%s", gray.Render(time.Now().Format(time.TimeOnly)), out)
			last = out
		}
		timer.Reset(interval)
	}
}

func renderFolders(ctx context.Context, c *controlplane.Client) (string, error) {
	list, err := c.Folders(ctx)
	if err != nil {
		return "", err
	}
	if len(list.Folders) == 0 {
		return gray.Render("no folders tracked") + "\n", nil
	}

	var out string
	for _, f := range list.Folders {
		out += folderRow(f)
	}
	return out, nil
}

func folderRow(f *handlers.FolderResponse) string {
	id := f.ID
	if len(id) > 8 {
		id = id[:8]
	}
	row := fmt.Sprintf("%s  %-24s %s  %s",
		gray.Render(id),
		bold.Render(f.Name),
		stateStyle(f.State).Render(fmt.Sprintf("%-14s", f.State)),
		lightGray.Render(f.Path+"  updated "+humanize.Time(f.UpdatedAt)),
	)
	if f.Error != "" {
		row += " " + red.Render(f.Error)
	}
	return row + "\n"
}
