package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/signage/internal/core"
)

func mediaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "media",
		Aliases: []string{"folder"},
		Short:   "Media folder commands",
	}

	cmd.AddCommand(mediaListCommand())
	cmd.AddCommand(mediaCreateCommand())
	cmd.AddCommand(mediaEditCommand())
	cmd.AddCommand(mediaDeleteCommand())

	return cmd
}

func mediaListCommand() *cobra.Command {
	var flags listFlags
	var size string
	var status string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			flags.preset = app.config.DefaultRange
			p, err := folderParams(&flags, size, status, app.service.Clock.Now())
			if err != nil {
				return err
			}
			result, err := app.service.ListFolders(ctx, p)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&size, "size", "", "size bucket: 0-10|10-100|100+")
	cmd.Flags().StringVar(&status, "status", "", "status: running|expiring|completed")
	return cmd
}

func folderFormFlags(cmd *cobra.Command, form *core.FolderForm) {
	cmd.Flags().BoolVar(&form.Expirable, "expirable", false, "set a validity window")
	cmd.Flags().StringVar(&form.StartDate, "start", "", "validity start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&form.EndDate, "end", "", "validity end (YYYY-MM-DD)")
}

func mediaCreateCommand() *cobra.Command {
	var form core.FolderForm

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			form.Name = args[0]
			if err := app.service.CreateFolder(ctx, form); err != nil {
				return err
			}
			return app.done("Folder created")
		},
	}
	folderFormFlags(cmd, &form)
	return cmd
}

func mediaEditCommand() *cobra.Command {
	var form core.FolderForm
	var noExpiry bool

	cmd := &cobra.Command{
		Use:   "edit <folderId>",
		Short: "Rename a folder or change its validity window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			id, err := parseID("folder id", args[0])
			if err != nil {
				return err
			}
			current, err := app.service.FindFolder(ctx, id)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				form.Name = current.Name
			}
			if !noExpiry && !form.Expirable && current.StartDate != "" {
				form.Expirable = true
				if form.StartDate == "" {
					form.StartDate = current.StartDate
				}
				if form.EndDate == "" {
					form.EndDate = current.EndDate
				}
			}
			if noExpiry {
				form.Expirable = false
				form.StartDate = ""
				form.EndDate = ""
			}
			if err := app.service.EditFolder(ctx, id, form); err != nil {
				return err
			}
			return app.done("Folder updated")
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "new folder name")
	cmd.Flags().BoolVar(&noExpiry, "no-expiry", false, "clear the validity window")
	folderFormFlags(cmd, &form)
	return cmd
}

func mediaDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <folderId>",
		Short: "Move a folder to the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			id, err := parseID("folder id", args[0])
			if err != nil {
				return err
			}
			return confirmed(cmd, app, id, fmt.Sprintf("Delete folder %d?", id), yes, app.service.DeleteFolder, "Folder deleted")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
