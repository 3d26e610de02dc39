package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	qbt "github.com/jfxdev/go-qbt-client"
	"github.com/jfxdev/go-qbt-client/shared"
)

// hashesArg turns positional arguments into a hash set; a lone "all"
// addresses every torrent.
func hashesArg(args []string) qbt.Hashes {
	if len(args) == 1 && args[0] == "all" {
		return qbt.AllHashes
	}
	return qbt.Hashes(args)
}

func (a *app) listCmd() *cobra.Command {
	var (
		filter   string
		category string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List torrents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := qbt.ListOptions{Filter: qbt.TorrentFilter(filter)}
			if cmd.Flags().Changed("category") {
				opts.Category = &category
			}

			return a.run(func(ctx context.Context, client *qbt.Client) error {
				list, err := client.ListTorrents(ctx, opts)
				if err != nil {
					return err
				}

				torrents := make([]shared.Torrent, 0, len(list))
				for _, t := range list {
					torrents = append(torrents, qbt.NormalizeTorrent(t))
				}

				if a.jsonOutput {
					return a.printJSON(torrents)
				}
				fmt.Fprint(a.out, formatTorrentTable(torrents))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "State filter (all, downloading, completed, paused, active, inactive, resumed, stalled, errored)")
	cmd.Flags().StringVar(&category, "category", "", `Only torrents in this category; "" for uncategorized`)
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <hash>",
		Short: "Show one torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, client *qbt.Client) error {
				t, err := client.GetTorrent(ctx, args[0])
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(t)
				}
				fmt.Fprint(a.out, formatTorrentDetail(*t))
				return nil
			})
		},
	}
}

func (a *app) labelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "Show categories in use and their torrent counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, client *qbt.Client) error {
				data, err := client.GetAllData(ctx)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(data.Labels)
				}
				fmt.Fprint(a.out, formatLabels(data.Labels))
				return nil
			})
		},
	}
}

func addFlags(cmd *cobra.Command, opts *qbt.AddTorrentOptions) {
	cmd.Flags().BoolVar(&opts.Paused, "paused", false, "Add in paused state")
	cmd.Flags().StringVar(&opts.Category, "category", "", "Category to assign")
	cmd.Flags().StringVar(&opts.SavePath, "save-path", "", "Download directory")
	cmd.Flags().BoolVar(&opts.SkipChecking, "skip-checking", false, "Skip hash checking")
}

func (a *app) addCmd() *cobra.Command {
	var opts qbt.AddTorrentOptions

	cmd := &cobra.Command{
		Use:   "add <file.torrent>",
		Short: "Add a .torrent file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, client *qbt.Client) error {
				src := qbt.TorrentFromFile(args[0])
				data, err := src.Bytes()
				if err != nil {
					return err
				}
				hash, err := qbt.InfoHash(data)
				if err != nil {
					return err
				}

				if err := client.AddTorrent(ctx, qbt.TorrentFromBytes(data), opts); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added %s\n", hash)
				return nil
			})
		},
	}

	addFlags(cmd, &opts)
	return cmd
}

func (a *app) addMagnetCmd() *cobra.Command {
	var opts qbt.AddTorrentOptions

	cmd := &cobra.Command{
		Use:   "add-magnet <uri>",
		Short: "Add a magnet link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			magnet, err := qbt.ParseMagnetLink(args[0])
			if err != nil {
				return err
			}

			return a.run(func(ctx context.Context, client *qbt.Client) error {
				if err := client.AddTorrentLink(ctx, args[0], opts); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Added %s\n", magnet.Hash)
				return nil
			})
		},
	}

	addFlags(cmd, &opts)
	return cmd
}

func (a *app) actionCmds() []*cobra.Command {
	actions := []struct {
		use   string
		short string
		fn    func(*qbt.Client, context.Context, qbt.Hashes) error
	}{
		{"pause", "Pause torrents", (*qbt.Client).PauseTorrent},
		{"resume", "Resume torrents", (*qbt.Client).ResumeTorrent},
		{"recheck", "Recheck torrent data", (*qbt.Client).RecheckTorrent},
		{"reannounce", "Reannounce to trackers", (*qbt.Client).ReannounceTorrent},
	}

	cmds := make([]*cobra.Command, 0, len(actions))
	for _, action := range actions {
		cmds = append(cmds, &cobra.Command{
			Use:   action.use + " <hash>... | all",
			Short: action.short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(func(ctx context.Context, client *qbt.Client) error {
					return action.fn(client, ctx, hashesArg(args))
				})
			},
		})
	}
	return cmds
}

func (a *app) removeCmd() *cobra.Command {
	var keepFiles bool

	cmd := &cobra.Command{
		Use:   "remove <hash>... | all",
		Short: "Remove torrents and, unless --keep-files, their data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, client *qbt.Client) error {
				return client.RemoveTorrent(ctx, hashesArg(args), !keepFiles)
			})
		},
	}

	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "Keep downloaded data on disk")
	return cmd
}
