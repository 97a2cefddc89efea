package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/imposterwatch/imposterwatch/client"
	"github.com/imposterwatch/imposterwatch/imposter"
	"github.com/imposterwatch/imposterwatch/jetstream"
	"github.com/imposterwatch/imposterwatch/jetstream/schedulers/sequential"
	"github.com/imposterwatch/imposterwatch/util"
	"github.com/imposterwatch/imposterwatch/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "imposterwatch",
		Usage:   "adds accounts impersonating public figures to a moderation list",
		Version: versioninfo.Short(),
		Flags:   runFlags,
		Action:  runImposterwatch,
	}

	return app.Run(args)
}

var runFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "jetstream-host",
		Usage:   "Jetstream host or full websocket URL to subscribe to",
		Value:   "wss://jetstream2.us-east.bsky.network",
		EnvVars: []string{"JETSTREAM_WS_URL"},
	},
	&cli.StringFlag{
		Name:    "service-url",
		Usage:   "method, hostname, and port of the PDS hosting the moderation account",
		Value:   "https://bsky.social",
		EnvVars: []string{"BSKY_SERVICE_URL"},
	},
	&cli.StringFlag{
		Name:    "identifier",
		Usage:   "handle or DID of the moderation account",
		EnvVars: []string{"BSKY_IDENTIFIER"},
	},
	&cli.StringFlag{
		Name:    "password",
		Usage:   "app password of the moderation account",
		EnvVars: []string{"BSKY_PASSWORD"},
	},
	&cli.StringFlag{
		Name:     "list-uri",
		Usage:    "AT-URI of the app.bsky.graph.list that impersonators are added to",
		Required: true,
		EnvVars:  []string{"BLOCKLIST_URI"},
	},
	&cli.StringFlag{
		Name:    "registry-file",
		Usage:   "JSON file of watched names and excepted DIDs, replacing the built-in list",
		EnvVars: []string{"IMPOSTERWATCH_REGISTRY_FILE"},
	},
	&cli.BoolFlag{
		Name:    "dry-run",
		Usage:   "log matches without creating list items",
		EnvVars: []string{"IMPOSTERWATCH_DRY_RUN"},
	},
	&cli.StringFlag{
		Name:    "metrics-listen",
		Usage:   "IP or address, and port, to listen on for metrics APIs (empty to disable)",
		Value:   ":3998",
		EnvVars: []string{"IMPOSTERWATCH_METRICS_LISTEN"},
	},
	&cli.Float64Flag{
		Name:    "max-actions-per-second",
		Usage:   "upper bound on list item creation rate (0 for no limit)",
		Value:   5,
		EnvVars: []string{"IMPOSTERWATCH_MAX_ACTIONS_PER_SECOND"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "log verbosity level (eg: warn, info, debug)",
		EnvVars: []string{"IMPOSTERWATCH_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
	},
	&cli.StringFlag{
		Name:    "log-format",
		Usage:   "log output format: text or json",
		EnvVars: []string{"IMPOSTERWATCH_LOG_FORMAT"},
	},
}

func runImposterwatch(cctx *cli.Context) error {
	logger, err := cliutil.SetupSlog(cliutil.LogOptions{
		LogLevel:  cctx.String("log-level"),
		LogFormat: cctx.String("log-format"),
	})
	if err != nil {
		return err
	}
	logger.Info("starting imposterwatch", "version", versioninfo.Short())

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTEL := configOTEL(ctx, "imposterwatch")
	defer shutdownOTEL()

	listURI, err := parseListURI(cctx.String("list-uri"))
	if err != nil {
		return err
	}

	reg, err := loadRegistry(cctx.String("registry-file"))
	if err != nil {
		return err
	}
	logger.Info("loaded watch list", "entries", reg.Len())

	dryRun := cctx.Bool("dry-run")
	var creator imposter.RecordCreator
	if dryRun {
		logger.Warn("dry-run mode: list items will not be created")
	} else {
		identifier := cctx.String("identifier")
		password := cctx.String("password")
		if identifier == "" || password == "" {
			return fmt.Errorf("identifier and password are required unless running with --dry-run")
		}
		c, err := client.LoginWithPassword(ctx, util.RobustHTTPClient(logger), cctx.String("service-url"), identifier, password)
		if err != nil {
			return fmt.Errorf("logging in as %s: %w", identifier, err)
		}
		logger.Info("logged in", "did", c.AccountDID)
		creator = c
	}

	eng := &imposter.Engine{
		Registry:   reg,
		Dispatcher: imposter.NewDispatcher(creator, cctx.Float64("max-actions-per-second"), logger),
		ListURI:    listURI,
		Logger:     logger.With("component", "engine"),
		DryRun:     dryRun,
	}

	u, err := jetstream.SubscribeURL(cctx.String("jetstream-host"), []string{jetstream.ProfileCollection})
	if err != nil {
		return err
	}
	con := &jetstream.Consumer{
		URL:       u,
		Scheduler: sequential.NewScheduler("imposterwatch", eng.ProcessEvent),
		Logger:    logger.With("component", "jetstream"),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, egCtx := errgroup.WithContext(runCtx)

	eg.Go(func() error {
		// when the stream ends for any reason, take the metrics server down with it
		defer cancel()
		err := con.Run(egCtx)
		if errors.Is(err, context.Canceled) {
			logger.Info("stream shut down", "state", con.State())
			return nil
		}
		return err
	})

	if listen := cctx.String("metrics-listen"); listen != "" {
		eg.Go(func() error {
			return runMetrics(egCtx, listen, logger)
		})
	}

	return eg.Wait()
}
