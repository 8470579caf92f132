package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/config"
	"github.com/rustyeddy/futuresbot/engine"
	"github.com/rustyeddy/futuresbot/feed"
	"github.com/rustyeddy/futuresbot/journal"
	"github.com/rustyeddy/futuresbot/logging"
	"github.com/rustyeddy/futuresbot/metrics"
	"github.com/rustyeddy/futuresbot/notify"
	"github.com/rustyeddy/futuresbot/operator"
	"github.com/rustyeddy/futuresbot/risk"
	"github.com/rustyeddy/futuresbot/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot from a config file",
	Long: `Run the strategy loop against the streamer's candle files using settings
from a configuration file.

The loop starts as soon as the candle files are readable. With --wait-start
it waits for /start from the Telegram operator instead.

Example:
  futuresbot run -f futuresbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runConfigPath string
	runWaitStart  bool
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVar(&runWaitStart, "wait-start", false, "wait for the operator's /start")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runWaitStart && cfg.Notify.TelegramToken == "" {
		return errors.New("--wait-start needs a telegram token")
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	var perf *journal.PerfLog
	if cfg.Journal.PerfLog != "" {
		perf = journal.NewPerfLog(cfg.Journal.PerfLog, cfg.Market.BaseAsset)
		log.Info("performance log", zap.String("path", perf.Path()))
	}

	var sinks notify.Multi
	if cfg.Notify.Console {
		sinks = append(sinks, notify.NewConsoleWriter(cmd.OutOrStdout()))
	}
	var bot *operator.TelegramBot
	var botAPI operator.BotAPI
	if cfg.Notify.TelegramToken != "" {
		tg, api, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			return err
		}
		sinks = append(sinks, tg)
		botAPI = api
	}

	rec := metrics.New()
	queue := notify.NewQueue(sinks, cfg.Queue(), log.Named("notify"))
	rec.WatchQueue(queue)

	queueCtx, stopQueue := context.WithCancel(context.WithoutCancel(ctx))
	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		queue.Run(queueCtx)
	}()
	defer func() {
		stopQueue()
		<-queueDone
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		queue.Flush(flushCtx)
	}()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, rec.Handler()); err != nil {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	rc := risk.NewController(cfg.Account.Bankroll, cfg.Account.MaxDailyLoss)
	eng := engine.New(cfg.Engine(), rc, cfg.Executor())
	candles := &feed.CSV{Dir: cfg.Feed.Dir, Symbol: cfg.Feed.Prefix, Logger: log.Named("feed")}

	loop := runner.New(cfg.Runner(), runner.Deps{
		Feed:     candles,
		Engine:   eng,
		Risk:     rc,
		Notifier: queue,
		Journal:  j,
		PerfLog:  perf,
		Metrics:  rec,
		Logger:   log.Named("runner"),
	})
	svc := operator.NewService(loop, log.Named("operator"))

	if botAPI != nil {
		bot = operator.NewTelegramBot(botAPI, svc, cfg.Notify.TelegramChatID, log.Named("telegram"))
		go func() {
			if err := bot.Run(ctx); err != nil {
				log.Error("telegram bot failed", zap.Error(err))
			}
		}()
	}

	log.Info("waiting for candle files", zap.String("dir", cfg.Feed.Dir), zap.String("prefix", cfg.Feed.Prefix))
	if err := feed.WaitReady(ctx, candles, cfg.FeedPoll()); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	if !runWaitStart {
		if _, err := svc.Start(ctx); err != nil {
			return fmt.Errorf("start loop: %w", err)
		}
	}

	// Without the Telegram operator the process lives as long as the loop.
	if bot == nil {
		err = svc.Wait(ctx)
	} else {
		<-ctx.Done()
	}

	svc.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if werr := svc.Wait(waitCtx); err == nil {
		err = werr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, runner.ErrHalted) {
		err = nil
	}
	log.Info("shutting down", zap.Bool("position_open", eng.State() == engine.Open))
	return err
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Discard{}, nil
	}
}
