package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lepinkainen/iadl/archive"
	"github.com/lepinkainen/iadl/download"
	"github.com/lepinkainen/iadl/types"
	"github.com/lepinkainen/iadl/ui"
)

// ListCmd shows what a download would fetch without transferring anything
type ListCmd struct {
	URL  string `arg:"" name:"url" help:"Archive.org directory listing URL"`
	Dest string `help:"Base directory to compare against" default:"downloads" type:"path" env:"IADL_DEST"`
}

// Run resolves the listing and prints each target with its local state
func (cmd *ListCmd) Run(appCtx *types.AppContext) error {
	fmt.Println(ui.HeaderStyle.Render(fmt.Sprintf("iadl %s", appCtx.VersionOrDefault())))

	targets, err := resolveTargets(context.Background(), download.NewHTTPClient(1), cmd.URL)
	if err != nil {
		return err
	}

	destDir := filepath.Join(cmd.Dest, archive.ArchiveName(cmd.URL))
	fmt.Printf("📁 Destination: %s\n\n", destDir)

	var onDisk int64
	for _, t := range targets {
		fmt.Println(describeTarget(destDir, t, &onDisk))
	}

	fmt.Printf("\n📈 %d files, %s already on disk\n", len(targets), ui.FormatBytes(onDisk))
	return nil
}

// describeTarget renders one listing line and adds any local bytes to onDisk
func describeTarget(destDir string, t download.Target, onDisk *int64) string {
	fi, err := os.Stat(filepath.Join(destDir, t.FileName))
	switch {
	case err != nil:
		return fmt.Sprintf("  ⬜ %s", t.FileName)
	case fi.IsDir():
		return fmt.Sprintf("  📂 %s %s", t.FileName, ui.MutedStyle.Render("(directory on disk, would write "+download.DirectoryFallbackName+")"))
	default:
		*onDisk += fi.Size()
		return fmt.Sprintf("  🟨 %s %s", t.FileName, ui.MutedStyle.Render(ui.FormatBytes(fi.Size())+" on disk"))
	}
}
