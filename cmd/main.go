package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/crazy-max/beheader/internal/app"
	"github.com/crazy-max/beheader/internal/logging"
	"github.com/crazy-max/beheader/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	beheader *app.Beheader
	cli      config.Cli
	version  = "dev"
	meta     = config.Meta{
		ID:     "beheader",
		Name:   "Beheader",
		Desc:   "Build a file that is at once an icon, a video, a web page, a PDF and an archive",
		URL:    "https://github.com/crazy-max/beheader",
		Author: "CrazyMax",
	}
)

func main() {
	var err error
	runtime.GOMAXPROCS(runtime.NumCPU())

	meta.Version = version

	_ = kong.Parse(&cli,
		kong.Name(meta.ID),
		kong.Description(fmt.Sprintf("%s. More info: %s", meta.Desc, meta.URL)),
		kong.UsageOnError(),
		kong.NoDefaultHelp(),
		kong.Configuration(config.YAML, "~/.config/beheader/config.yaml", "/etc/beheader/config.yaml"),
		kong.Vars{
			"version": version,
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	// Logging
	if err = logging.Configure(cli); err != nil {
		log.Fatal().Err(err).Msg("cannot configure logging")
	}

	// Init
	if beheader, err = app.New(meta, cli); err != nil {
		log.Fatal().Err(err).Msg("cannot initialize beheader")
	}

	// Handle os signals
	channel := make(chan os.Signal, 1)
	signal.Notify(channel, os.Interrupt, SIGTERM)
	go func() {
		sig := <-channel
		beheader.Close()
		log.Warn().Msgf("caught signal %v", sig)
		os.Exit(1)
	}()

	// Start
	if err = beheader.Start(); err != nil {
		log.Fatal().Stack().Err(err).Send()
	}
}
