package main

import (
	"github.com/alecthomas/kong"
	"github.com/lepinkainen/iadl/cmd"
	"github.com/lepinkainen/iadl/types"
)

var Version = "dev"

type CLI struct {
	Download cmd.DownloadCmd `cmd:"" help:"Download every file of an Archive.org directory listing"`
	List     cmd.ListCmd     `cmd:"" help:"List the files a download would fetch"`

	Version kong.VersionFlag `help:"Print version and exit"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("iadl"),
		kong.Description("Concurrent, resumable downloader for Archive.org directory listings."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)
	err := ctx.Run(&types.AppContext{Version: Version})
	ctx.FatalIfErrorf(err)
}
