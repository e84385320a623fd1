package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey-austin/signage/internal/adapters/idgen"
	"github.com/mikey-austin/signage/internal/adapters/probe"
	"github.com/mikey-austin/signage/internal/core"
	"github.com/mikey-austin/signage/internal/upload"
)

const probeTimeout = 5 * time.Second

func uploadCommand() *cobra.Command {
	var folder int64
	var noProbe bool
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload images, videos and PDFs into a folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			if folder <= 0 {
				folder = app.config.DefaultFolder
			}

			files := make([]upload.File, 0, len(args))
			for _, path := range args {
				f, err := upload.FromPath(path)
				if err != nil {
					return core.WrapError(core.ExitUsage, "read "+path, err)
				}
				files = append(files, f)
			}

			opts := core.UploadOptions{IDs: idgen.Generator{}, MaxFiles: app.config.MaxFiles, SkipExisting: skipExisting}
			if !noProbe {
				if prober, err := probe.New(probeTimeout); err == nil {
					opts.Prober = prober
				} else {
					app.logger.Debug("video durations unavailable", zap.Error(err))
				}
			}

			var bar *progress
			if !app.quiet && !app.json && isTerminal(cmd.ErrOrStderr()) {
				bar = newProgress(cmd.ErrOrStderr(), len(files))
				opts.OnChange = bar.update
			}

			// Uploads run until done or interrupted, not under the command timeout.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := app.service.Upload(ctx, folder, files, opts)
			bar.stop()
			if err != nil {
				if len(result.Items) > 0 && !app.quiet {
					_ = app.printer.Print(result)
				}
				return err
			}
			if app.quiet {
				return nil
			}
			return app.printer.Print(result)
		},
	}
	cmd.Flags().Int64VarP(&folder, "folder", "f", 0, "target folder id (default from config)")
	cmd.Flags().BoolVar(&noProbe, "no-probe", false, "skip reading video durations")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip files whose name is already in the folder")
	return cmd
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progress renders the overall upload progress as one bar, one hundred
// steps per file.
type progress struct {
	mu   sync.Mutex
	bar  *pterm.ProgressbarPrinter
	seen map[string]int
}

func newProgress(w io.Writer, files int) *progress {
	bar, err := pterm.DefaultProgressbar.
		WithTotal(files * 100).
		WithTitle("Uploading").
		WithShowCount(false).
		WithWriter(w).
		Start()
	if err != nil {
		return nil
	}
	return &progress{bar: bar, seen: map[string]int{}}
}

func (p *progress) update(item upload.Item) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pct := item.Progress
	if item.Status == upload.StatusDone || item.Status == upload.StatusError || item.Status == upload.StatusCanceled {
		pct = 100
	}
	if delta := pct - p.seen[item.ID]; delta > 0 {
		p.bar.Add(delta)
		p.seen[item.ID] = pct
	}
	p.bar.UpdateTitle(fmt.Sprintf("%s %s", item.Status, item.File.Name))
}

func (p *progress) stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = p.bar.Stop()
}
