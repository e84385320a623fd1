package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mikey-austin/signage/internal/core"
)

// HumanPrinter prints human-readable output.
type HumanPrinter struct {
	W   io.Writer
	Now func() time.Time
}

// Print renders human output.
func (p HumanPrinter) Print(v any) error {
	w := writer(p.W)
	switch data := v.(type) {
	case core.FoldersResult:
		return printFolders(w, data)
	case core.FilesResult:
		return printFiles(w, data)
	case core.PlaylistsResult:
		return printPlaylists(w, data)
	case core.PlaylistOptionsResult:
		return printPlaylistOptions(w, data)
	case core.PlaylistShowResult:
		return printPlaylistShow(w, data)
	case core.PlayersResult:
		return printPlayers(w, data, p.now())
	case core.TrashResult:
		return printTrash(w, data)
	case core.BulkTrashResult:
		return printBulkTrash(w, data)
	case core.UploadResult:
		return printUpload(w, data)
	case core.MessageResult:
		_, err := fmt.Fprintln(w, data.Message)
		return err
	case core.EventResult:
		return printEvent(w, data)
	default:
		_, err := fmt.Fprintln(w, "ok")
		return err
	}
}

func (p HumanPrinter) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func emit(w io.Writer, empty string, headers []string, rows [][]string, aligns []columnAlignment) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, empty)
		return err
	}
	_, err := fmt.Fprintln(w, renderTable(headers, rows, aligns))
	return err
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func printRange(w io.Writer, label string) error {
	if label == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "range: %s\n", label)
	return err
}

func printFolders(w io.Writer, result core.FoldersResult) error {
	if err := printRange(w, result.Range); err != nil {
		return err
	}
	rows := make([][]string, 0, len(result.Folders))
	for _, f := range result.Folders {
		validity := "-"
		if f.StartDate != "" || f.EndDate != "" {
			validity = orDash(f.StartDate) + " → " + orDash(f.EndDate)
		}
		rows = append(rows, []string{
			id(f.ID),
			f.Name,
			strconv.FormatInt(f.FilesCount, 10),
			core.FormatBytes(f.Size),
			validity,
			orDash(f.Status),
			orDash(core.FormatDate(f.LastModified)),
		})
	}
	return emit(w, "no folders",
		[]string{"ID", "NAME", "FILES", "SIZE", "VALIDITY", "STATUS", "MODIFIED"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight})
}

func printFiles(w io.Writer, result core.FilesResult) error {
	if result.Folder != nil {
		if _, err := fmt.Fprintf(w, "%s (%d)\n", result.Folder.Name, result.Folder.ID); err != nil {
			return err
		}
	}
	if err := printRange(w, result.Range); err != nil {
		return err
	}
	rows := make([][]string, 0, len(result.Files))
	for _, f := range result.Files {
		duration := "-"
		if f.Duration != nil {
			duration = core.FormatSeconds(*f.Duration)
		}
		rows = append(rows, []string{
			id(f.ID),
			f.Name,
			f.Type,
			core.FormatBytes(f.Size),
			duration,
			orDash(f.Status),
			orDash(core.FormatDate(f.CreatedAt)),
		})
	}
	return emit(w, "no files",
		[]string{"ID", "NAME", "TYPE", "SIZE", "DURATION", "STATUS", "CREATED"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight})
}

func printPlaylists(w io.Writer, result core.PlaylistsResult) error {
	if err := printRange(w, result.Range); err != nil {
		return err
	}
	rows := make([][]string, 0, len(result.Playlists))
	for _, pl := range result.Playlists {
		rows = append(rows, []string{
			id(pl.ID),
			pl.Name,
			strconv.FormatInt(pl.ItemsCount, 10),
			core.FormatSeconds(pl.Duration),
			strconv.FormatInt(pl.DefaultDuration, 10) + "s",
			orDash(core.FormatDate(pl.LastModified)),
		})
	}
	return emit(w, "no playlists",
		[]string{"ID", "NAME", "ITEMS", "DURATION", "DEFAULT", "MODIFIED"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight})
}

func printPlaylistOptions(w io.Writer, result core.PlaylistOptionsResult) error {
	rows := make([][]string, 0, len(result.Options))
	for _, opt := range result.Options {
		rows = append(rows, []string{id(opt.ID), opt.Name, strconv.FormatInt(opt.DefaultDuration, 10) + "s"})
	}
	return emit(w, "no playlists", []string{"ID", "NAME", "DEFAULT"}, rows, []columnAlignment{alignRight, alignLeft, alignRight})
}

func printPlaylistShow(w io.Writer, result core.PlaylistShowResult) error {
	pl := result.Playlist
	if _, err := fmt.Fprintf(w, "%s (%d) default %ds\n", pl.Name, pl.ID, pl.DefaultDuration); err != nil {
		return err
	}
	if err := printRange(w, result.Range); err != nil {
		return err
	}
	rows := make([][]string, 0, len(pl.Items))
	for _, item := range pl.Items {
		rows = append(rows, []string{
			strconv.Itoa(item.PlayOrder),
			id(item.ID),
			id(item.MoveID()),
			orDash(item.Kind()),
			item.Name,
			core.FormatSeconds(item.Duration),
			core.FormatBytes(item.Size),
		})
	}
	if err := emit(w, "no items",
		[]string{"#", "ID", "ENTRY", "TYPE", "NAME", "DURATION", "SIZE"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight}); err != nil {
		return err
	}
	if !result.Ordered && len(pl.Items) > 1 {
		_, err := fmt.Fprintln(w, "sorted view: reorder is only available in play order")
		return err
	}
	return nil
}

func printPlayers(w io.Writer, result core.PlayersResult, now time.Time) error {
	rows := make([][]string, 0, len(result.Players))
	for _, pl := range result.Players {
		playlist := "-"
		if pl.PlaylistID != nil {
			playlist = orDash(pl.PlaylistName)
			if playlist == "-" {
				playlist = id(*pl.PlaylistID)
			}
		}
		active := "-"
		if pl.LastActive != "" {
			active = core.Ago(pl.LastActive, now)
		}
		rows = append(rows, []string{id(pl.ID), pl.Name, pl.Location, playlist, orDash(pl.Status), active})
	}
	return emit(w, "no players",
		[]string{"ID", "NAME", "LOCATION", "PLAYLIST", "STATUS", "LAST ACTIVE"},
		rows,
		[]columnAlignment{alignRight})
}

func printTrash(w io.Writer, result core.TrashResult) error {
	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		rows = append(rows, []string{core.TrashKeyOf(item), item.Name, orDash(item.Type), orDash(item.Location), orDash(item.DeletedAtLabel)})
	}
	return emit(w, "trash is empty", []string{"KEY", "NAME", "TYPE", "LOCATION", "DELETED"}, rows, nil)
}

func printBulkTrash(w io.Writer, result core.BulkTrashResult) error {
	for _, key := range result.Done {
		if _, err := fmt.Fprintf(w, "%sd %s\n", result.Action, key); err != nil {
			return err
		}
	}
	if result.Failed != "" {
		_, err := fmt.Fprintf(w, "failed to %s %s: %s\n", result.Action, result.Failed, result.Err)
		return err
	}
	return nil
}

func printUpload(w io.Writer, result core.UploadResult) error {
	for _, notice := range result.Notices {
		if _, err := fmt.Fprintln(w, notice); err != nil {
			return err
		}
	}
	rows := make([][]string, 0, len(result.Items))
	for _, item := range result.Items {
		rows = append(rows, []string{item.File.Name, item.File.Type, string(item.Status), strconv.Itoa(item.Progress) + "%", orDash(item.Error)})
	}
	if err := emit(w, "nothing uploaded", []string{"NAME", "TYPE", "STATUS", "PROGRESS", "ERROR"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}); err != nil {
		return err
	}
	if len(result.Uploaded) > 0 {
		_, err := fmt.Fprintf(w, "Uploaded %d file(s) to folder %d\n", len(result.Uploaded), result.FolderID)
		return err
	}
	return nil
}

func printEvent(w io.Writer, result core.EventResult) error {
	evt := result.Event
	scope := ""
	if evt.Scope != "" {
		scope = " " + evt.Scope
	}
	ts := time.Unix(evt.TS, 0).Format(time.RFC3339)
	_, err := fmt.Fprintf(w, "%s %s%s from %s\n", ts, evt.Entity, scope, evt.Origin)
	return err
}
