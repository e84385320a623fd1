package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/signage/internal/adapters/config"
	"github.com/mikey-austin/signage/internal/adapters/output"
	"github.com/mikey-austin/signage/internal/core"
	"github.com/mikey-austin/signage/internal/params"
	"github.com/mikey-austin/signage/pkg/signage"
)

func TestMergeConfigFlagsWin(t *testing.T) {
	cfg := config.Config{
		Backend:   "https://cfg.example/",
		Timeout:   config.Duration{Duration: 3 * time.Second},
		Broker:    "tcp://cfg:1883",
		TopicBase: "office",
		Upload:    config.Upload{MaxFiles: 4},
		Defaults:  config.Defaults{Folder: 9, Remember: true},
	}

	got := mergeConfig(cfg, "", "", signage.BaseTopic, 0)
	if got.Backend != "https://cfg.example" {
		t.Fatalf("backend = %q", got.Backend)
	}
	if got.TopicBase != "office" || got.Timeout != 3*time.Second || got.MaxFiles != 4 || got.DefaultFolder != 9 || !got.Remember {
		t.Fatalf("config values not kept: %+v", got)
	}

	got = mergeConfig(cfg, "http://flag", "tcp://flag:1883", "lab", time.Second)
	if got.Backend != "http://flag" || got.Broker != "tcp://flag:1883" || got.TopicBase != "lab" || got.Timeout != time.Second {
		t.Fatalf("flags not applied: %+v", got)
	}
}

func TestMergeConfigDefaults(t *testing.T) {
	got := mergeConfig(config.Config{}, "", "", signage.BaseTopic, 0)
	if got.Timeout != defaultTimeout {
		t.Fatalf("timeout = %v", got.Timeout)
	}
	if got.TopicBase != signage.BaseTopic {
		t.Fatalf("topic base = %q", got.TopicBase)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("folder id", " 42 "); err != nil || id != 42 {
		t.Fatalf("parseID = %d, %v", id, err)
	}
	for _, raw := range []string{"", "0", "-3", "abc"} {
		_, err := parseID("folder id", raw)
		if core.ExitCode(err) != core.ExitUsage {
			t.Fatalf("parseID(%q) exit = %d", raw, core.ExitCode(err))
		}
	}
	if id, err := optionalID("playlist id", ""); err != nil || id != nil {
		t.Fatalf("optionalID empty = %v, %v", id, err)
	}
}

func TestFolderParamsFromFlags(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	flags := listFlags{sort: "name:asc", search: "lobby", within: "7d"}

	p, err := folderParams(&flags, "10-100", "running", now)
	if err != nil {
		t.Fatalf("folderParams: %v", err)
	}
	v := p.Values()
	if v.Get("sortBy") != "name" || v.Get("sortOrder") != "asc" || v.Get("search") != "lobby" {
		t.Fatalf("base values = %v", v)
	}
	if v.Get("sizeBucket") != "10-100" || v.Get("status") != "running" {
		t.Fatalf("filters = %v", v)
	}
	if !params.IsRangeSelected(params.Last7Days, p.LastModifiedFrom, p.LastModifiedTo, now) {
		t.Fatalf("quick range not applied: %v", v)
	}
}

func TestConfiguredRangeSeedsDatedLists(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	p, err := folderParams(&listFlags{preset: "30d"}, "", "", now)
	if err != nil {
		t.Fatalf("folderParams: %v", err)
	}
	if !params.IsRangeSelected(params.Last30Days, p.LastModifiedFrom, p.LastModifiedTo, now) {
		t.Fatalf("configured range not applied: %v", p.Values())
	}

	files, err := fileParams(&listFlags{preset: "30d", within: "7d"}, "", "", "", now)
	if err != nil {
		t.Fatalf("fileParams: %v", err)
	}
	if !params.IsRangeSelected(params.Last7Days, files.From, files.To, now) {
		t.Fatalf("flag range should replace configured range: %v", files.Values())
	}

	playlists, err := playlistParams(&listFlags{preset: "30d", reset: true}, 60, 0, now)
	if err != nil {
		t.Fatalf("playlistParams: %v", err)
	}
	v := playlists.Values()
	if v.Has("lastModifiedFrom") || v.Has("lastModifiedTo") || v.Get("durationFrom") != "60" {
		t.Fatalf("reset should drop only the configured range: %v", v)
	}

	if _, err := folderParams(&listFlags{preset: "1y"}, "", "", now); core.ExitCode(err) != core.ExitUsage {
		t.Fatalf("expected usage error for bad configured range, got %v", err)
	}
}

func TestParamsRejectBadFlags(t *testing.T) {
	now := time.Now()
	cases := []func() error{
		func() error { _, err := folderParams(&listFlags{sort: "bogus:asc"}, "", "", now); return err },
		func() error { _, err := folderParams(&listFlags{}, "huge", "", now); return err },
		func() error { _, err := fileParams(&listFlags{from: "10/05/2024"}, "", "", "", now); return err },
		func() error { _, err := playlistFileParams(&listFlags{within: "1y"}, "", "", "", now); return err },
		func() error { _, err := playerParams(&listFlags{}, "sleeping"); return err },
	}
	for i, fn := range cases {
		if code := core.ExitCode(fn()); code != core.ExitUsage {
			t.Fatalf("case %d exit = %d", i, code)
		}
	}
}

func TestPlaylistParamsDurationRange(t *testing.T) {
	p, err := playlistParams(&listFlags{}, 60, 0, time.Now())
	if err != nil {
		t.Fatalf("playlistParams: %v", err)
	}
	v := p.Values()
	if v.Get("durationFrom") != "60" || v.Has("durationTo") {
		t.Fatalf("duration values = %v", v)
	}
}

func TestConfirmReadsAnswer(t *testing.T) {
	var out bytes.Buffer
	a := &app{stdin: strings.NewReader("yes\n"), printer: output.JSONPrinter{W: &out}}
	cmd := &cobra.Command{}
	cmd.SetErr(&out)

	ok, err := a.confirm(cmd, "Delete folder 1?", false)
	if err != nil || !ok {
		t.Fatalf("confirm = %v, %v", ok, err)
	}
	if !strings.Contains(out.String(), "Delete folder 1? [y/N]") {
		t.Fatalf("prompt = %q", out.String())
	}

	a.stdin = strings.NewReader("\n")
	if ok, _ := a.confirm(cmd, "Delete?", false); ok {
		t.Fatal("empty answer confirmed")
	}
	if ok, _ := a.confirm(cmd, "Delete?", true); !ok {
		t.Fatal("--yes did not confirm")
	}
}

func TestScopedEntity(t *testing.T) {
	if !scopedEntity(signage.EntityFiles) || !scopedEntity(signage.EntityPlaylist) {
		t.Fatal("files and playlist need a scope")
	}
	if scopedEntity(signage.EntityFolders) {
		t.Fatal("folders has no scope")
	}
}
