package main

import (
	"context"

	"github.com/spf13/cobra"

	qbt "github.com/jfxdev/go-qbt-client"
)

func (a *app) categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	var savePath string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, client *qbt.Client) error {
				return client.CreateCategory(ctx, args[0], savePath)
			})
		},
	}
	create.Flags().StringVar(&savePath, "save-path", "", "Default download directory for the category")

	remove := &cobra.Command{
		Use:   "remove <name>...",
		Short: "Remove categories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, client *qbt.Client) error {
				return client.RemoveCategory(ctx, args...)
			})
		},
	}

	cmd.AddCommand(create, remove)
	return cmd
}
