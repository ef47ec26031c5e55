package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"realtor-scraper/config"
	"realtor-scraper/utils"
)

const usage = `usage: realtor-scraper <command> [flags]

commands:
  scrape          collect listings from the search targets
  import          normalize and load a JSON file of listings into the store
  upload-images   publish listing images to object storage
  backup          snapshot the stored listings (-list to show backups)
  restore         load a checkpoint or backup file into the store
  stats           print insights over the stored listings
`

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerTo(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := "scrape", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var code int
	switch cmd {
	case "scrape":
		code = runScrape(ctx, cfg, logger, args)
	case "import":
		code = runImport(ctx, cfg, logger, args)
	case "upload-images":
		code = runUploadImages(ctx, cfg, logger, args)
	case "backup":
		code = runBackup(ctx, cfg, logger, args)
	case "restore":
		code = runRestore(ctx, cfg, logger, args)
	case "stats":
		code = runStats(ctx, cfg, logger, args)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		code = 2
	}

	stop()
	os.Exit(code)
}
