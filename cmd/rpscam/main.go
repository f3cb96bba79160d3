package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/rpscam/internal/app"
	"github.com/ayusman/rpscam/internal/capture"
	"github.com/ayusman/rpscam/internal/config"
	"github.com/ayusman/rpscam/internal/game"
	"github.com/ayusman/rpscam/internal/server"
	"github.com/ayusman/rpscam/internal/store"
	"github.com/ayusman/rpscam/internal/tray"
)

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[RPSCAM] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("rpscam: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	fmt.Println("Rock Paper Scissors - show your hand to the camera")

	if err := cfg.ResolveDBPath(); err != nil {
		return err
	}
	cfg.ResolveWebDir()
	if cfg.WebDir != "" {
		log.Printf("Serving static files from: %s", cfg.WebDir)
	} else {
		log.Println("Serving the bundled web client")
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	var source capture.Source
	if cfg.Source == config.SourceCamera {
		opts := capture.DefaultOptions()
		opts.DeviceID = cfg.CameraID
		opts.Mirror = cfg.Mirror
		source = capture.NewCamera(opts)
	} else {
		log.Println("Remote mode: waiting for landmarks on /api/landmarks")
	}

	a := app.New(app.Config{
		Store:  st,
		Source: source,
		Seed:   cfg.Seed,
		Game:   cfg.Game(),
		Loop:   cfg.Loop(),
	})

	hub := server.NewHub()
	a.OnEvent(hub.PublishRound)
	a.OnFrame(hub.PublishFrame)

	srvCfg := server.Config{
		StaticDir: cfg.WebDir,
		Store:     st,
		Game:      a,
		Hub:       hub,
		Ingest:    a.Remote(),
	}
	if p := a.Pipeline(); p != nil {
		srvCfg.Frames = p
	}
	srv := server.New(srvCfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	url := gameURL(cfg.Addr)

	var t *tray.Tray
	if cfg.Tray {
		t = tray.New()
		t.OnOpen(func() { openBrowser(url) })
		t.OnQuit(cancel)
		a.OnEvent(func(ev game.Event) {
			t.SetRound(ev.Round)
			if ev.Type != game.EventResolved {
				return
			}
			if stats, err := a.Stats(); err == nil {
				t.SetScore(stats)
			}
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(gctx)
	})
	g.Go(func() error {
		return srv.Run(gctx, cfg.Addr)
	})

	if cfg.Open {
		openBrowser(url)
	}

	if t != nil {
		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		// The tray owns the main goroutine until it quits.
		t.Run()
		cancel()
	}

	return g.Wait()
}

// gameURL turns a listen address into a URL a browser can open.
func gameURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func openBrowser(url string) {
	if err := browser.OpenURL(url); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
