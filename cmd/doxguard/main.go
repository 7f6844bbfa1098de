package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/doxguard/doxguard/automod/engine"
	"github.com/doxguard/doxguard/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "doxguard",
		Usage:   "doxxing triage and review daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"DOXGUARD_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format (text or json)",
			Value:   "json",
			EnvVars: []string{"DOXGUARD_LOG_FMT", "LOG_FMT"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "review-secret",
			Usage:    "shared secret which opens a review session",
			Required: true,
			EnvVars:  []string{"DOXGUARD_REVIEW_SECRET"},
		},
		&cli.StringFlag{
			Name:     "bridge-host",
			Usage:    "method, hostname, and port of the chat bridge API",
			Required: true,
			EnvVars:  []string{"DOXGUARD_BRIDGE_HOST"},
		},
		&cli.StringFlag{
			Name:    "bridge-token",
			Usage:   "bearer token for the chat bridge API",
			EnvVars: []string{"DOXGUARD_BRIDGE_TOKEN"},
		},
		&cli.StringFlag{
			Name:     "oracle-host",
			Usage:    "method, hostname, and port of the doxxing classifier",
			Required: true,
			EnvVars:  []string{"DOXGUARD_ORACLE_HOST"},
		},
		&cli.StringFlag{
			Name:    "oracle-token",
			Usage:   "bearer token for the doxxing classifier",
			EnvVars: []string{"DOXGUARD_ORACLE_TOKEN"},
		},
		&cli.Float64Flag{
			Name:    "oracle-rate-limit",
			Usage:   "max classifier requests per second",
			Value:   10,
			EnvVars: []string{"DOXGUARD_ORACLE_RATE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/doxguard/incidents.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; in-process stores are used if not set",
			EnvVars: []string{"DOXGUARD_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook which mirrors the moderation log",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-json-path",
			Usage:   "file path of JSON file containing static sets (exempt authors, reviewers)",
			EnvVars: []string{"DOXGUARD_SETS_JSON_PATH"},
		},
		&cli.StringFlag{
			Name:    "monitored-channel",
			Usage:   "name of the channel whose messages are classified",
			Value:   "general",
			EnvVars: []string{"DOXGUARD_MONITORED_CHANNEL"},
		},
		&cli.StringFlag{
			Name:    "mod-channel",
			Usage:   "name of the moderator channel",
			Value:   "moderation",
			EnvVars: []string{"DOXGUARD_MOD_CHANNEL"},
		},
		&cli.StringFlag{
			Name:    "bot-user-id",
			Usage:   "chat user id of this daemon; its own messages are ignored",
			EnvVars: []string{"DOXGUARD_BOT_USER_ID"},
		},
		&cli.BoolFlag{
			Name:    "restrict-reviewers",
			Usage:   "only identities in the 'reviewers' set may open review sessions",
			EnvVars: []string{"DOXGUARD_RESTRICT_REVIEWERS"},
		},
		&cli.Float64Flag{
			Name:    "low-threshold",
			Usage:   "verdicts below this probability are ignored",
			Value:   engine.DefaultConfig().LowThreshold,
			EnvVars: []string{"DOXGUARD_LOW_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "high-threshold",
			Usage:   "verdicts above this probability are removed without review",
			Value:   engine.DefaultConfig().HighThreshold,
			EnvVars: []string{"DOXGUARD_HIGH_THRESHOLD"},
		},
		&cli.IntFlag{
			Name:    "auto-remove-quota",
			Usage:   "max automatic removals per day (0 for unlimited)",
			Value:   engine.DefaultConfig().AutoRemoveQuotaDay,
			EnvVars: []string{"DOXGUARD_AUTO_REMOVE_QUOTA"},
		},
		&cli.IntFlag{
			Name:    "report-quota",
			Usage:   "max reports filed per reporter per day (0 for unlimited)",
			Value:   engine.DefaultConfig().ReportQuotaDay,
			EnvVars: []string{"DOXGUARD_REPORT_QUOTA"},
		},
		&cli.IntFlag{
			Name:    "suspension-days",
			Usage:   "suspension length mentioned in notices",
			Value:   3,
			EnvVars: []string{"DOXGUARD_SUSPENSION_DAYS"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3989",
			EnvVars: []string{"DOXGUARD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3988",
			EnvVars: []string{"DOXGUARD_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger, err := cliutil.SetupSlog(os.Stdout, cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		if err != nil {
			return err
		}

		shutdownOTEL := configOTEL("doxguard")
		defer shutdownOTEL()

		engConfig := engine.Config{
			LowThreshold:       cctx.Float64("low-threshold"),
			HighThreshold:      cctx.Float64("high-threshold"),
			AutoRemoveQuotaDay: cctx.Int("auto-remove-quota"),
			ReportQuotaDay:     cctx.Int("report-quota"),
			SuspensionDuration: time.Duration(cctx.Int("suspension-days")) * 24 * time.Hour,
		}
		if err := engConfig.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"), cliutil.DatabaseOptions{
			Logger:  logger,
			Tracing: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
		})
		if err != nil {
			return err
		}

		srv, err := NewServer(db, Config{
			Logger:            logger,
			BridgeHost:        cctx.String("bridge-host"),
			BridgeToken:       cctx.String("bridge-token"),
			OracleHost:        cctx.String("oracle-host"),
			OracleToken:       cctx.String("oracle-token"),
			OracleRateLimit:   cctx.Float64("oracle-rate-limit"),
			RedisURL:          cctx.String("redis-url"),
			SlackWebhookURL:   cctx.String("slack-webhook-url"),
			SetsFileJSON:      cctx.String("sets-json-path"),
			ReviewSecret:      cctx.String("review-secret"),
			BotUserID:         cctx.String("bot-user-id"),
			MonitoredChannel:  cctx.String("monitored-channel"),
			ModChannel:        cctx.String("mod-channel"),
			RestrictReviewers: cctx.Bool("restrict-reviewers"),
			Engine:            engConfig,
		})
		if err != nil {
			return err
		}

		if err := srv.Run(ctx, cctx.String("bind"), cctx.String("metrics-listen")); err != nil {
			return fmt.Errorf("failed to run doxguard service: %w", err)
		}
		return nil
	},
}
