package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oshiro-app/oshiro-server/config"
	"github.com/oshiro-app/oshiro-server/internal/app"
	"github.com/oshiro-app/oshiro-server/internal/notify"
	"github.com/oshiro-app/oshiro-server/internal/restapi"
	"github.com/oshiro-app/oshiro-server/internal/webserver"
)

var (
	h        = flag.Bool("h", false, "help usage")
	x        = flag.Bool("x", false, "debug mode")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	conffile = flag.String("c", "/etc/oshiro.yml", "config file")
)

func printHelp() {
	if *h {
		fmt.Fprintln(os.Stderr, "oshiro-server usage: oshiro-server [-h] [-x] [-initdb] [-c config]")
		flag.PrintDefaults()
		os.Exit(0)
	}
}

func main() {
	flag.Parse()
	printHelp()

	cfg := config.LoadConfig(*conffile)
	if *x {
		cfg.System.Debug = true
		cfg.Database.Debug = true
	}

	_ = os.MkdirAll(cfg.System.Workdir, 0o755)

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	if _, err := notify.Start(application, nil); err != nil {
		zap.L().Error("failed to start notification service", zap.Error(err))
	}

	ws := webserver.Init(application)
	restapi.InitRouter()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ws.Listen()
	})

	g.Go(func() error {
		application.StartBackgroundJobs(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return ws.Shutdown()
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server stopped", zap.Error(err))
	}
}
