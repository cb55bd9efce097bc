package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"horse.fit/stallednews/internal/cli"
	"horse.fit/stallednews/internal/db"
	"horse.fit/stallednews/internal/httpapi"
	"horse.fit/stallednews/internal/metrics"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8090, "HTTP port")
	runsRoot := fs.String("runs-root", "", "Directory holding run directories (default: SN_RUNS_ROOT)")
	withDB := fs.Bool("db", false, "Connect to Postgres and report it in /api/v1/health")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 2*time.Minute, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	cfg, logger, ok := bootstrap(envLoader)
	if !ok {
		return 1
	}
	root := strings.TrimSpace(*runsRoot)
	if root == "" {
		root = cfg.RunsRoot
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create runs root: %v\n", err)
		return 1
	}

	m := metrics.New()
	svc, err := newService(cfg, m, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Serve failed: %v\n", err)
		return 1
	}

	var pool *db.Pool
	if *withDB {
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dbCancel()

		pool, err = db.NewPool(dbCtx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("serve failed to connect to database")
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			return 1
		}
		defer pool.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := httpapi.NewServer(httpapi.Deps{
		RunsRoot: root,
		Service:  svc,
		Metrics:  m,
		Pool:     pool,
		Defaults: defaultOptions(cfg),
	}, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
