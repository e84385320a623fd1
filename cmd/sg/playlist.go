package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/signage/internal/core"
	"github.com/mikey-austin/signage/internal/debounce"
	"github.com/mikey-austin/signage/internal/params"
)

func playlistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "playlist",
		Aliases: []string{"pl"},
		Short:   "Playlist commands",
	}

	cmd.AddCommand(playlistListCommand())
	cmd.AddCommand(playlistOptionsCommand())
	cmd.AddCommand(playlistCreateCommand())
	cmd.AddCommand(playlistEditCommand())
	cmd.AddCommand(playlistDeleteCommand())
	cmd.AddCommand(playlistShowCommand())
	cmd.AddCommand(playlistMoveCommand())
	cmd.AddCommand(playlistReorderCommand())
	cmd.AddCommand(playlistDuplicateCommand())
	cmd.AddCommand(playlistRemoveCommand())
	cmd.AddCommand(playlistAddFilesCommand())
	cmd.AddCommand(playlistAddSubCommand())

	return cmd
}

func playlistListCommand() *cobra.Command {
	var flags listFlags
	var minSecs int
	var maxSecs int

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List playlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			flags.preset = app.config.DefaultRange
			p, err := playlistParams(&flags, minSecs, maxSecs, app.service.Clock.Now())
			if err != nil {
				return err
			}
			result, err := app.service.ListPlaylists(ctx, p)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().IntVar(&minSecs, "min-duration", 0, "minimum total duration in seconds")
	cmd.Flags().IntVar(&maxSecs, "max-duration", 0, "maximum total duration in seconds")
	return cmd
}

func playlistOptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List playlist names for selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			result, err := app.service.PlaylistOptions(ctx)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
}

func playlistCreateCommand() *cobra.Command {
	var form core.PlaylistForm

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			form.Name = args[0]
			if err := app.service.SavePlaylist(ctx, nil, form); err != nil {
				return err
			}
			return app.done("Playlist created")
		},
	}
	cmd.Flags().Int64VarP(&form.DefaultDuration, "duration", "d", 0, "default item duration in seconds")
	return cmd
}

func playlistEditCommand() *cobra.Command {
	var form core.PlaylistForm

	cmd := &cobra.Command{
		Use:   "edit <playlistId>",
		Short: "Rename a playlist or change its default duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			id, err := parseID("playlist id", args[0])
			if err != nil {
				return err
			}
			current, err := app.service.ShowPlaylist(ctx, id, params.DefaultPlaylistFileParams())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("name") {
				form.Name = current.Playlist.Name
			}
			if !cmd.Flags().Changed("duration") {
				form.DefaultDuration = current.Playlist.DefaultDuration
			}
			if err := app.service.SavePlaylist(ctx, &id, form); err != nil {
				return err
			}
			return app.done("Playlist updated")
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "new playlist name")
	cmd.Flags().Int64VarP(&form.DefaultDuration, "duration", "d", 0, "default item duration in seconds")
	return cmd
}

func playlistDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <playlistId>",
		Short: "Delete a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			id, err := parseID("playlist id", args[0])
			if err != nil {
				return err
			}
			return confirmed(cmd, app, id, fmt.Sprintf("Delete playlist %d?", id), yes, app.service.DeletePlaylist, "Playlist deleted")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func playlistShowCommand() *cobra.Command {
	var flags listFlags
	var size string
	var itemType string
	var duration string
	var searchStdin bool

	cmd := &cobra.Command{
		Use:   "show <playlistId>",
		Short: "Show playlist items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			id, err := parseID("playlist id", args[0])
			if err != nil {
				return err
			}
			p, err := playlistFileParams(&flags, size, itemType, duration, app.service.Clock.Now())
			if err != nil {
				return err
			}
			if searchStdin {
				return searchPlaylist(cmd, app, id, p)
			}

			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()
			result, err := app.service.ShowPlaylist(ctx, id, p)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&size, "size", "", "size bucket: 0-10|10-100|100+")
	cmd.Flags().StringVar(&itemType, "type", "", "item type: image|video|application/pdf|subPlaylist")
	cmd.Flags().StringVar(&duration, "duration", "", "duration bucket: 0-3|5-10|10+")
	cmd.Flags().BoolVar(&searchStdin, "search-stdin", false, "read search terms line by line from stdin")
	return cmd
}

// searchPlaylist refetches the playlist for each search term read from
// stdin, once typing has paused.
func searchPlaylist(cmd *cobra.Command, app *app, id int64, p params.PlaylistFileParams) error {
	var (
		mu      sync.Mutex
		lastErr error
	)
	search := debounce.New(debounce.PlaylistSearchDelay, func(term string) {
		mu.Lock()
		defer mu.Unlock()
		p.Search = term
		ctx, cancel := withTimeout(context.Background(), app.timeout)
		defer cancel()
		result, err := app.service.ShowPlaylist(ctx, id, p)
		if err != nil {
			lastErr = err
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return
		}
		lastErr = app.printer.Print(result)
	})
	defer search.Stop()

	search.Set(p.Search)
	search.Flush()

	scanner := bufio.NewScanner(app.stdin)
	for scanner.Scan() {
		search.Set(strings.TrimSpace(scanner.Text()))
	}
	search.Flush()
	if err := scanner.Err(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	return lastErr
}

func playlistMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <playlistId> <itemId> <position>",
		Short: "Move an item to a 1-based position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			playlistID, err := parseID("playlist id", args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID("item id", args[1])
			if err != nil {
				return err
			}
			result, err := app.service.MoveItemTo(ctx, playlistID, itemID, args[2])
			if err != nil {
				return err
			}
			return app.done(result.Message)
		},
	}
}

func playlistReorderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <playlistId> <from> <to>",
		Short: "Drag the item at one 1-based position to another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			playlistID, err := parseID("playlist id", args[0])
			if err != nil {
				return err
			}
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return core.UsageError(fmt.Sprintf("invalid position %q", args[1]))
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return core.UsageError(fmt.Sprintf("invalid position %q", args[2]))
			}
			result, err := app.service.Reorder(ctx, playlistID, from, to)
			if err != nil {
				return err
			}
			if app.quiet {
				return nil
			}
			return app.printer.Print(result)
		},
	}
}

func playlistDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dup <playlistId> <entryId>",
		Short: "Duplicate a playlist entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			ids, err := parseIDs("id", args)
			if err != nil {
				return err
			}
			if err := app.service.DuplicateItem(ctx, ids[0], ids[1]); err != nil {
				return err
			}
			return app.done("Item duplicated")
		},
	}
}

func playlistRemoveCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <playlistId> <entryId>",
		Short: "Remove an entry from a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ids, err := parseIDs("id", args)
			if err != nil {
				return err
			}
			remove := func(ctx context.Context, entryID int64) error {
				return app.service.RemoveItem(ctx, ids[0], entryID)
			}
			return confirmed(cmd, app, ids[1], fmt.Sprintf("Remove entry %d?", ids[1]), yes, remove, "Item removed")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func playlistAddFilesCommand() *cobra.Command {
	var duration int64

	cmd := &cobra.Command{
		Use:   "add-files <playlistId> <fileId>...",
		Short: "Append files to a playlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			playlistID, err := parseID("playlist id", args[0])
			if err != nil {
				return err
			}
			fileIDs, err := parseIDs("file id", args[1:])
			if err != nil {
				return err
			}
			if err := app.service.AddFiles(ctx, playlistID, fileIDs, duration); err != nil {
				return err
			}
			return app.done(fmt.Sprintf("Added %d file(s)", len(fileIDs)))
		},
	}
	cmd.Flags().Int64VarP(&duration, "duration", "d", 0, "per-item duration in seconds (default: playlist default)")
	return cmd
}

func playlistAddSubCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-sub <playlistId> <subPlaylistId>...",
		Short: "Nest playlists inside a playlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			ctx, cancel := withTimeout(context.Background(), app.timeout)
			defer cancel()

			ids, err := parseIDs("playlist id", args)
			if err != nil {
				return err
			}
			if err := app.service.AddSubPlaylists(ctx, ids[0], ids[1:]); err != nil {
				return err
			}
			return app.done(fmt.Sprintf("Added %d playlist(s)", len(ids)-1))
		},
	}
}
