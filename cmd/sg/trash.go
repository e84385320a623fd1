package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/signage/internal/core"
	"github.com/mikey-austin/signage/internal/params"
)

func trashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Trash commands",
	}

	cmd.AddCommand(trashListCommand())
	cmd.AddCommand(trashRestoreCommand())
	cmd.AddCommand(trashDeleteCommand())

	return cmd
}

func trashListCommand() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List deleted folders and files",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.ListTrash(ctx, params.TrashParams{Search: search})
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "search term")
	return cmd
}

func trashRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <kind:id>...",
		Short: "Restore deleted folders or files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.BulkRestore(ctx, args)
			return printBulk(app, result, err)
		},
	}
}

func trashDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <kind:id>...",
		Short: "Delete trash entries for good",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			for _, key := range args {
				if _, _, err := core.ParseTrashKey(key); err != nil {
					return err
				}
			}
			ok, err := app.confirm(cmd, fmt.Sprintf("Permanently delete %d item(s)?", len(args)), yes)
			if err != nil {
				return err
			}
			if !ok {
				return app.done("Canceled")
			}
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.BulkDelete(ctx, args)
			return printBulk(app, result, err)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

// printBulk prints what a bulk action got through before returning its error.
func printBulk(app *app, result core.BulkTrashResult, err error) error {
	if len(result.Done) > 0 || result.Failed != "" {
		if perr := app.printer.Print(result); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}
