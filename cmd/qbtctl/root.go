package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	qbt "github.com/jfxdev/go-qbt-client"
	"github.com/jfxdev/go-qbt-client/internal/config"
	"github.com/jfxdev/go-qbt-client/internal/telemetry"
)

// app carries global flags and the lazily built client.
type app struct {
	out        io.Writer
	configPath string
	jsonOutput bool
	client     *qbt.Client
	shutdown   func(context.Context) error
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "qbtctl",
		Short: "Manage a qBittorrent daemon",
		Long: `qbtctl talks to the qBittorrent Web API.

Settings come from ~/.config/qbtctl/config.toml (or --config), a .env file in
the working directory and the environment.

Environment Variables:
  QBT_URL          Web UI address (default: ` + qbt.DefaultBaseURL + `)
  QBT_USERNAME     Web UI user
  QBT_PASSWORD     Web UI password
  QBT_TIMEOUT      Per-request timeout, e.g. 10s
  QBT_PROXY        HTTP proxy URL`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config.toml")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output JSON instead of human-readable text")

	root.AddCommand(
		a.versionCmd(),
		a.listCmd(),
		a.getCmd(),
		a.labelsCmd(),
		a.addCmd(),
		a.addMagnetCmd(),
		a.removeCmd(),
		a.categoryCmd(),
	)
	for _, c := range a.actionCmds() {
		root.AddCommand(c)
	}

	return root
}

func (a *app) connect() (*qbt.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	clientConfig, err := cfg.ClientConfig()
	if err != nil {
		return nil, err
	}
	client, err := qbt.New(clientConfig)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Init(context.Background(), "qbtctl")
	if err != nil {
		return nil, err
	}

	a.client = client
	a.shutdown = shutdown
	return client, nil
}

func (a *app) close() error {
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	if serr := a.shutdown(context.Background()); err == nil {
		err = serr
	}
	return err
}

// run builds the client and a signal-aware context for one command.
func (a *app) run(fn func(ctx context.Context, client *qbt.Client) error) error {
	client, err := a.connect()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return fn(ctx, client)
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show daemon and Web API versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, client *qbt.Client) error {
				version, err := client.Version(ctx)
				if err != nil {
					return err
				}
				api, err := client.APIVersion(ctx)
				if err != nil {
					return err
				}

				if a.jsonOutput {
					return a.printJSON(map[string]string{"version": version, "api": api})
				}
				fmt.Fprintf(a.out, "qBittorrent %s (Web API %s)\n", version, api)
				return nil
			})
		},
	}
}
