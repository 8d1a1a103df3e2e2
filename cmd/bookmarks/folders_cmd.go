package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Gold240sx/MacOS-Bookmarks/internal/folder"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/picker"
	"github.com/Gold240sx/MacOS-Bookmarks/internal/resolver"
)

func init() {
	rootCmd.AddCommand(
		newAddCmd(),
		newListCmd(),
		newStatusCmd(),
		newResolveCmd(),
		newLocateCmd(),
		newRestoreCmd(),
		newRenameCmd(),
		newRemoveCmd(),
	)
}

// withApp builds the app for one command and closes it afterwards
func withApp(cmd *cobra.Command, p picker.Picker, fn func(ctx context.Context, a *app) error) error {
	cmd.SilenceUsage = true

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if p == nil {
		p = picker.None{}
	}
	a, err := newApp(cfg, p)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

// find accepts a full id or a unique prefix
func find(ctx context.Context, a *app, idOrPrefix string) (*folder.TrackedFolder, error) {
	return a.resolver.Find(ctx, strings.TrimSpace(idOrPrefix))
}

func newAddCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <dir>",
		Short: "Start tracking a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				f, err := a.resolver.Add(ctx, args[0], name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", green.Render("added"), bold.Render(f.Name), gray.Render(f.ShortID()))
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", f.StoredPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (defaults to the folder name)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked folders",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				folders, err := a.resolver.List(ctx)
				if err != nil {
					return err
				}
				if len(folders) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), gray.Render("no folders tracked"))
					return nil
				}
				for _, f := range folders {
					status, needsSearch, err := a.resolver.Status(ctx, f.ID)
					if err != nil {
						return err
					}
					printFolderLine(cmd.OutOrStdout(), f, stateOf(status, needsSearch))
				}
				return nil
			})
		},
	}
}

func printFolderLine(w io.Writer, f *folder.TrackedFolder, state folder.State) {
	fmt.Fprintf(w, "%s  %-24s %s  %s\n",
		gray.Render(f.ShortID()),
		bold.Render(f.Name),
		stateStyle(state).Render(fmt.Sprintf("%-14s", state)),
		lightGray.Render(f.StoredPath+"  added "+humanize.Time(f.CreatedAt)),
	)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show where a folder is and whether its record is up to date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				f, err := find(ctx, a, args[0])
				if err != nil {
					return err
				}
				status, needsSearch, err := a.resolver.Status(ctx, f.ID)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), f, status, stateOf(status, needsSearch))
				return nil
			})
		},
	}
}

func printStatus(w io.Writer, f *folder.TrackedFolder, status folder.SyncStatus, state folder.State) {
	fmt.Fprintf(w, "%s %s\n", bold.Render(f.Name), gray.Render(f.ID))
	fmt.Fprintf(w, "  state    %s\n", stateStyle(state).Render(string(state)))
	fmt.Fprintf(w, "  stored   %s\n", status.StoredPath)
	if status.HasActual() && status.ActualPath != status.StoredPath {
		fmt.Fprintf(w, "  actual   %s\n", cyan.Render(status.ActualPath))
	}
	fmt.Fprintf(w, "  synced   %s\n", yesNo(status.IsSynced))
	fmt.Fprintf(w, "  trash    %s\n", yesNo(status.IsInTrash))
	fmt.Fprintf(w, "  updated  %s\n", humanize.Time(f.UpdatedAt))
}

func printResult(w io.Writer, f *folder.TrackedFolder, res *resolver.Result) {
	line := fmt.Sprintf("%s %s", stateStyle(res.State).Render(string(res.State)), bold.Render(f.Name))
	if res.Path != "" {
		line += " " + res.Path
	}
	if res.Strategy != "" {
		line += " " + gray.Render("via "+res.Strategy)
	}
	fmt.Fprintln(w, line)
}

func newResolveCmd() *cobra.Command {
	var prompt bool

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Find a folder now and update its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p picker.Picker = picker.None{}
			if prompt {
				p = picker.Interactive()
			}
			return withApp(cmd, p, func(ctx context.Context, a *app) error {
				f, err := find(ctx, a, args[0])
				if err != nil {
					return err
				}
				res, err := a.resolver.ResolveAndUpdate(ctx, f.ID, prompt)
				if res != nil {
					printResult(cmd.OutOrStdout(), f, res)
				}
				if err != nil {
					return err
				}
				if res.State == folder.StateInTrash {
					fmt.Fprintf(cmd.OutOrStdout(), "  run %s to bring it back\n", cyan.Render("bookmarks restore "+f.ShortID()))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&prompt, "prompt", "p", false, "Ask for the folder when it cannot be found")
	return cmd
}

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <id> [path]",
		Short: "Point a folder at a location you choose",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			return withApp(cmd, picker.Interactive(), func(ctx context.Context, a *app) error {
				f, err := find(ctx, a, args[0])
				if err != nil {
					return err
				}
				res, err := a.resolver.Locate(ctx, f.ID, path)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), f, res)
				return nil
			})
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Move a trashed folder back out of the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				f, err := find(ctx, a, args[0])
				if err != nil {
					return err
				}
				res, err := a.resolver.RestoreFromTrash(ctx, f.ID)
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), f, res)
				return nil
			})
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Change a folder's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				f, err := find(ctx, a, args[0])
				if err != nil {
					return err
				}
				old := f.Name
				if f, err = a.resolver.Rename(ctx, f.ID, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n", green.Render("renamed"), old, gray.Render("->"), bold.Render(f.Name))
				return nil
			})
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Stop tracking a folder; the folder itself is left alone",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app) error {
				f, err := find(ctx, a, args[0])
				if err != nil {
					return err
				}
				if err := a.resolver.Remove(ctx, f.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", red.Render("removed"), bold.Render(f.Name))
				return nil
			})
		},
	}
}
