package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey-austin/signage/internal/core"
	"github.com/mikey-austin/signage/internal/debounce"
	"github.com/mikey-austin/signage/internal/params"
	"github.com/mikey-austin/signage/pkg/signage"
)

func watchCommand() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "watch [entity]",
		Short: "Follow invalidation events and refetch the watched list",
		Long: "Without an entity every event is printed. With one of folders, files, playlists,\n" +
			"playlist, players or trash the list is printed and refetched after each burst\n" +
			"of events from other clients.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			if app.bus == nil {
				return core.UsageError("watch needs a broker (set --broker or config)")
			}
			entity := ""
			if len(args) == 1 {
				entity = args[0]
				if !signage.KnownEntity(entity) {
					return core.UsageError(fmt.Sprintf("unknown entity %q", entity))
				}
			}
			if scopedEntity(entity) && scope == "" {
				return core.UsageError(entity + " needs --scope")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := &watcher{app: app, entity: entity, scope: scope}
			if entity != "" {
				if err := w.refetch(); err != nil {
					return err
				}
			}
			return w.run(ctx)
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "folder or playlist id for files and playlist")
	return cmd
}

func scopedEntity(entity string) bool {
	return entity == signage.EntityFiles || entity == signage.EntityPlaylist
}

type watcher struct {
	app    *app
	entity string
	scope  string
	mu     sync.Mutex
}

func (w *watcher) run(ctx context.Context) error {
	events, errs := w.app.bus.Subscribe(ctx, w.entity)
	refetch := debounce.New(debounce.SearchDelay, func(signage.InvalidateEvent) {
		if err := w.refetch(); err != nil {
			w.app.logger.Warn("refetch failed", zap.String("entity", w.entity), zap.Error(err))
		}
	})
	defer refetch.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return core.WrapError(core.ExitRuntime, "watch", err)
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if w.scope != "" && evt.Scope != "" && evt.Scope != w.scope {
				continue
			}
			w.app.service.HandleEvent(evt)
			if w.entity == "" {
				w.print(core.EventResult{Event: evt})
				continue
			}
			refetch.Set(evt)
		}
	}
}

func (w *watcher) print(v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.app.printer.Print(v); err != nil {
		w.app.logger.Warn("print failed", zap.Error(err))
	}
}

// refetch loads the watched list through the service cache and prints it.
func (w *watcher) refetch() error {
	ctx, cancel := withTimeout(context.Background(), w.app.timeout)
	defer cancel()

	s := w.app.service
	var (
		result any
		err    error
	)
	switch w.entity {
	case signage.EntityFolders:
		result, err = s.ListFolders(ctx, params.DefaultFolderParams())
	case signage.EntityFiles:
		var id int64
		if id, err = strconv.ParseInt(w.scope, 10, 64); err == nil {
			result, err = s.ListFiles(ctx, id, params.DefaultFileParams())
		}
	case signage.EntityPlaylists:
		result, err = s.ListPlaylists(ctx, params.DefaultPlaylistParams())
	case signage.EntityPlaylist:
		var id int64
		if id, err = strconv.ParseInt(w.scope, 10, 64); err == nil {
			result, err = s.ShowPlaylist(ctx, id, params.DefaultPlaylistFileParams())
		}
	case signage.EntityPlayers:
		result, err = s.ListPlayers(ctx, params.DefaultPlayerParams())
	case signage.EntityTrash:
		result, err = s.ListTrash(ctx, params.TrashParams{})
	default:
		return nil
	}
	if err != nil {
		return err
	}
	w.print(result)
	return nil
}
