package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/signage/internal/core"
)

func playerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player commands",
	}

	cmd.AddCommand(playerListCommand())
	cmd.AddCommand(playerCreateCommand())
	cmd.AddCommand(playerEditCommand())
	cmd.AddCommand(playerAssignCommand())

	return cmd
}

func playerListCommand() *cobra.Command {
	var flags listFlags
	var status string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List players",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			p, err := playerParams(&flags, status)
			if err != nil {
				return err
			}
			result, err := app.service.ListPlayers(ctx, p)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	flags.register(cmd, false)
	cmd.Flags().StringVar(&status, "status", "", "status: online|offline")
	return cmd
}

type playerFlags struct {
	form     core.PlayerForm
	playlist string
}

func (f *playerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.form.Name, "name", "", "player name")
	cmd.Flags().StringVar(&f.form.Location, "location", "", "player location")
	cmd.Flags().StringVar(&f.playlist, "playlist", "", "playlist id")
	cmd.Flags().StringVar(&f.form.DeviceKey, "device-key", "", "device key (8 to 16 characters)")
}

func playerCreateCommand() *cobra.Command {
	var flags playerFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a player",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			playlistID, err := optionalID("playlist id", flags.playlist)
			if err != nil {
				return err
			}
			flags.form.PlaylistID = playlistID
			if err := app.service.SavePlayer(ctx, nil, flags.form); err != nil {
				return err
			}
			return app.done("Player created")
		},
	}
	flags.register(cmd)
	return cmd
}

func playerEditCommand() *cobra.Command {
	var flags playerFlags

	cmd := &cobra.Command{
		Use:   "edit <playerId>",
		Short: "Edit a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			id, err := parseID("player id", args[0])
			if err != nil {
				return err
			}
			current, err := app.service.FindPlayer(ctx, id)
			if err != nil {
				return err
			}
			form := flags.form
			if !cmd.Flags().Changed("name") {
				form.Name = current.Name
			}
			if !cmd.Flags().Changed("location") {
				form.Location = current.Location
			}
			if !cmd.Flags().Changed("device-key") {
				form.DeviceKey = current.DeviceKey
			}
			form.PlaylistID = current.PlaylistID
			if cmd.Flags().Changed("playlist") {
				if form.PlaylistID, err = optionalID("playlist id", flags.playlist); err != nil {
					return err
				}
			}
			if err := app.service.SavePlayer(ctx, &id, form); err != nil {
				return err
			}
			return app.done("Player updated")
		},
	}
	flags.register(cmd)
	return cmd
}

func playerAssignCommand() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "assign <playerId> [playlistId]",
		Short: "Point a player at a playlist",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			playerID, err := parseID("player id", args[0])
			if err != nil {
				return err
			}
			var playlistID *int64
			switch {
			case clear && len(args) == 2:
				return core.UsageError("--clear takes no playlist id")
			case clear:
			case len(args) == 2:
				if playlistID, err = optionalID("playlist id", args[1]); err != nil {
					return err
				}
			default:
				return core.UsageError("Please select a playlist")
			}
			if err := app.service.AssignPlaylist(ctx, playerID, playlistID); err != nil {
				return err
			}
			if playlistID == nil {
				return app.done("Playlist cleared")
			}
			return app.done("Playlist assigned")
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "remove the current playlist")
	return cmd
}
