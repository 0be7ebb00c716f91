package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aptible/cronman/crontab"
	"github.com/aptible/cronman/log/formatter"
	"github.com/aptible/cronman/log/hook"
	"github.com/aptible/cronman/prometheus_metrics"
	"github.com/aptible/cronman/store"
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] TARGET COMMAND [ARGS]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "TARGET is \"user\", \"user:NAME\" or a crontab file path (use ./user for a file named user).\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  list\n")
	fmt.Fprintf(os.Stderr, "  add [-disabled] [-display] [-env NAME=VALUE]... [-comment TEXT] \"M H DOM MON DOW\" COMMAND\n")
	fmt.Fprintf(os.Stderr, "  remove \"M H DOM MON DOW\" COMMAND\n")
	fmt.Fprintf(os.Stderr, "  toggle \"M H DOM MON DOW\" COMMAND\n")
	fmt.Fprintf(os.Stderr, "  watch\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	json := flag.Bool("json", false, "enable JSON logging")
	logFormat := flag.String("log-format", "", "custom log format using %field placeholders, e.g. \"%time %level [%target] %message\"")
	splitLogs := flag.Bool("split-logs", false, "split log output into stdout/stderr")
	sentry := flag.String("sentry-dsn", "", "enable Sentry error logging, using provided DSN")
	prometheusListen := flag.String("prometheus-listen-address", "", "give a valid ip[:port] address to expose Prometheus metrics at /metrics (port defaults to "+prometheus_metrics.DefaultPort+")")
	crontabCommand := flag.String("crontab-command", store.DefaultCrontabCommand, "crontab(1) binary used for user targets")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 2 {
		usage()
		os.Exit(2)
		return
	}

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	switch {
	case *json:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case *logFormat != "":
		logrus.SetFormatter(&formatter.CustomFieldFormatter{LogFormat: *logFormat})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if *splitLogs {
		hook.RegisterSplitLogger(logrus.StandardLogger(), os.Stdout, os.Stderr)
	} else {
		logrus.SetOutput(os.Stderr)
	}

	if *sentry != "" {
		sh, err := logrus_sentry.NewSentryHook(*sentry, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			logrus.Fatalf("Could not init sentry logger: %s", err)
		}
		sh.Timeout = 5 * time.Second
		logrus.AddHook(sh)
	}

	var promMetrics *prometheus_metrics.PrometheusMetrics
	if *prometheusListen != "" {
		promMetrics = prometheus_metrics.New(*prometheusListen)

		go func() {
			if err := promMetrics.InitHTTPServer(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Fatalf("prometheus http startup failed: %s", err.Error())
			}
		}()

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := promMetrics.ShutdownHTTPServer(ctx); err != nil {
				logrus.Errorf("prometheus http shutdown failed: %s", err.Error())
			}
		}()
	}

	target, command, args := flag.Arg(0), flag.Arg(1), flag.Args()[2:]
	logger := logrus.WithFields(logrus.Fields{"target": target})

	s, err := store.Open(target,
		store.WithLogger(logrus.NewEntry(logrus.StandardLogger())),
		store.WithMetrics(promMetrics),
		store.WithCrontabCommand(*crontabCommand),
	)
	if err != nil {
		logrus.Fatal(err)
		return
	}

	switch command {
	case "list":
		err = listJobs(s, os.Stdout, time.Now())
	case "add":
		err = addJob(s, logger, args)
	case "remove":
		err = removeJob(s, logger, args)
	case "toggle":
		err = toggleJob(s, logger, args)
	case "watch":
		err = watch(s, logger)
	default:
		err = usageError("unknown command %q", command)
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(2)
		return
	}
	if errors.Is(err, crontab.ErrJobNotFound) {
		logger.Error(err)
		os.Exit(1)
		return
	}
	if err != nil {
		logrus.Fatal(err)
		return
	}
}

func watch(s *store.Store, logger *logrus.Entry) error {
	if s.Target().Kind != store.FileTarget {
		return usageError("watch needs a crontab file target")
	}

	watcher, err := newCrontabWatcher(s.Target().Path)
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := listJobs(s, os.Stdout, time.Now()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watching for changes")

	return watchCrontab(ctx, s, watcher, logger, func(*crontab.Crontab) {
		if err := listJobs(s, os.Stdout, time.Now()); err != nil {
			logger.Error(err)
		}
	})
}
