package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lepinkainen/iadl/archive"
	"github.com/lepinkainen/iadl/download"
	"github.com/lepinkainen/iadl/types"
	"github.com/lepinkainen/iadl/ui"
	"github.com/lepinkainen/iadl/utils"
)

// DownloadCmd fetches every file of an Archive.org directory listing,
// resuming files that are already partially on disk.
type DownloadCmd struct {
	URL       string        `arg:"" name:"url" help:"Archive.org directory listing URL (https://archive.org/download/<item>/)"`
	Workers   int           `help:"Maximum number of parallel downloads" default:"10" env:"IADL_WORKERS"`
	Dest      string        `help:"Base directory for downloads" default:"downloads" type:"path" env:"IADL_DEST"`
	ChunkSize int           `name:"chunk-size" help:"Read buffer size in bytes" default:"81920"`
	Interval  time.Duration `help:"Progress redraw interval" default:"700ms"`
	TUI       bool          `name:"tui" help:"Show progress in an interactive full-screen view"`
	Debug     bool          `help:"Write a debug log" env:"IADL_DEBUG"`
	LogFile   string        `name:"log-file" help:"Debug log path" default:"iadl.log" type:"path"`
}

// Run resolves the listing and downloads every file into <dest>/<archive name>.
// Only an unreachable listing fails the command; per-file failures are reported.
func (cmd *DownloadCmd) Run(appCtx *types.AppContext) error {
	version := appCtx.VersionOrDefault()
	download.UserAgent = "iadl/" + version

	logger, closeLog, err := utils.NewLogger(cmd.Debug, cmd.LogFile)
	if err != nil {
		fmt.Printf("⚠️  %v\n", err)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("iadl %s", version)))

	client := download.NewHTTPClient(cmd.Workers)
	targets, err := resolveTargets(ctx, client, cmd.URL)
	if err != nil {
		return err
	}

	destDir := filepath.Join(cmd.Dest, archive.ArchiveName(cmd.URL))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create destination %s: %w", destDir, err)
	}
	for _, warning := range utils.CheckDestination(destDir) {
		fmt.Println(ui.WarningStyle.Render("⚠️  " + warning))
	}

	if len(targets) == 0 {
		fmt.Println(ui.SuccessStyle.Render("🎯 Nothing to download."))
		return nil
	}

	opts := &download.Options{
		MaxConcurrency: cmd.Workers,
		ChunkSize:      cmd.ChunkSize,
		Interval:       cmd.Interval,
	}
	logger.Printf("listing %s resolved to %d targets, destination %s", cmd.URL, len(targets), destDir)

	fmt.Println(ui.ProcessingStyle.Render(fmt.Sprintf("⬇️  Downloading %d files to %s with %d workers:", len(targets), destDir, cmd.Workers)))

	var summary download.Summary
	if cmd.TUI {
		summary, err = cmd.runWithTUI(ctx, cancel, client, opts, targets, destDir, version, logger)
		if err != nil {
			return err
		}
	} else {
		renderer := ui.NewRenderer(os.Stdout, len(targets), utils.IsTerminal(os.Stdout))
		summary = download.NewCoordinator(client, renderer, opts, logger).Run(ctx, targets, destDir)
	}

	printSummary(summary)
	return nil
}

// runWithTUI drives the same coordinator, with snapshots sent to a bubbletea program
func (cmd *DownloadCmd) runWithTUI(ctx context.Context, cancel context.CancelFunc, client *http.Client,
	opts *download.Options, targets []download.Target, destDir, version string, logger *log.Logger) (download.Summary, error) {
	renderer := ui.NewRenderer(io.Discard, len(targets), false)
	model := ui.NewTUIModel(renderer, version, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen())

	coord := download.NewCoordinator(client, ui.NewProgramDrawer(p), opts, logger)
	result := make(chan download.Summary, 1)
	go func() {
		result <- coord.Run(ctx, targets, destDir)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return download.Summary{}, fmt.Errorf("TUI error: %w", err)
	}

	return <-result, nil
}

// resolveTargets fetches the listing. A page without a listing is an empty run, not an error.
func resolveTargets(ctx context.Context, client *http.Client, url string) ([]download.Target, error) {
	fmt.Println(ui.InfoStyle.Render(fmt.Sprintf("🔍 Fetching listing %s", url)))

	targets, err := archive.NewResolver(client).Resolve(ctx, url)
	switch {
	case errors.Is(err, archive.ErrParse):
		fmt.Println(ui.WarningStyle.Render("⚠️  No directory listing found on the page"))
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to resolve listing: %w", err)
	}

	fmt.Println(ui.InfoStyle.Render(fmt.Sprintf("📄 Found %d files", len(targets))))
	return targets, nil
}

// printSummary displays final statistics
func printSummary(summary download.Summary) {
	skipped := 0
	for _, r := range summary.Results {
		if r.Skipped {
			skipped++
		}
	}

	fmt.Printf("\n%s\n", ui.HeaderStyle.Render("📊 Download Summary"))
	fmt.Printf("   Completed: %d files (%d already on disk)\n", summary.Completed, skipped)
	fmt.Printf("   Errored: %d files\n", summary.Errored)
	fmt.Printf("   Transferred: %s\n", ui.FormatBytes(summary.BytesTransferred))

	for _, r := range summary.Results {
		if r.Err != nil {
			fmt.Printf("%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s: %v", r.Target.FileName, r.Err)))
		}
	}

	if summary.Errored > 0 {
		fmt.Printf("\n%s\n", ui.InfoStyle.Render("Run the same command again to resume the failed files."))
		return
	}
	fmt.Printf("\n%s\n", ui.SuccessStyle.Render("🎉 Download complete!"))
}
