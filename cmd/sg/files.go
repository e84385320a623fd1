package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func filesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Commands for the files of a folder",
	}

	cmd.AddCommand(filesListCommand())
	cmd.AddCommand(filesRenameCommand())
	cmd.AddCommand(filesDeleteCommand())

	return cmd
}

// folderArg returns the folder id from args[0], or the configured default
// folder when args is empty.
func folderArg(app *app, args []string) (int64, error) {
	if len(args) == 0 || args[0] == "" {
		if app.config.DefaultFolder > 0 {
			return app.config.DefaultFolder, nil
		}
		return parseID("folder id", "")
	}
	return parseID("folder id", args[0])
}

func filesListCommand() *cobra.Command {
	var flags listFlags
	var size string
	var status string
	var fileType string

	cmd := &cobra.Command{
		Use:   "ls [folderId]",
		Short: "List files in a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			folderID, err := folderArg(app, args)
			if err != nil {
				return err
			}
			flags.preset = app.config.DefaultRange
			p, err := fileParams(&flags, size, status, fileType, app.service.Clock.Now())
			if err != nil {
				return err
			}
			result, err := app.service.ListFiles(ctx, folderID, p)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&size, "size", "", "size bucket: 0-10|10-100|100+")
	cmd.Flags().StringVar(&status, "status", "", "status: active|inactive")
	cmd.Flags().StringVar(&fileType, "type", "", "file type filter")
	return cmd
}

func filesRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <folderId> <fileId> <name>",
		Short: "Rename a file, keeping its extension",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			folderID, err := parseID("folder id", args[0])
			if err != nil {
				return err
			}
			fileID, err := parseID("file id", args[1])
			if err != nil {
				return err
			}
			file, err := app.service.FindFile(ctx, folderID, fileID)
			if err != nil {
				return err
			}
			if err := app.service.RenameFile(ctx, folderID, file, args[2]); err != nil {
				return err
			}
			return app.done("File renamed")
		},
	}
}

func filesDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <folderId> <fileId>",
		Short: "Move a file to the trash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			folderID, err := parseID("folder id", args[0])
			if err != nil {
				return err
			}
			fileID, err := parseID("file id", args[1])
			if err != nil {
				return err
			}
			del := func(ctx context.Context, id int64) error {
				return app.service.DeleteFile(ctx, folderID, id)
			}
			return confirmed(cmd, app, fileID, fmt.Sprintf("Delete file %d?", fileID), yes, del, "File deleted")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
