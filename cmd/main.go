package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"typing-simulator/browser"
	"typing-simulator/config"
	"typing-simulator/logger"
	"typing-simulator/messaging"
	"typing-simulator/paste"
	"typing-simulator/stealth"
	"typing-simulator/storage"
	"typing-simulator/surface"
	"typing-simulator/typing"
)

func main() {
	// Flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	mode := flag.String("mode", "browser", "Mode: 'browser' (hook pastes in a live page) or 'demo' (type into an in-memory field)")
	text := flag.String("text", "The quick brown fox jumps over the lazy dog.", "Text typed in demo mode")
	url := flag.String("url", "", "Page to open in browser mode, overrides start_url")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.StartURL = *url
	}

	// 2. Initialize Logger
	log := logger.New(logger.Options{Format: cfg.Log.Format, Level: cfg.Log.Level, File: cfg.Log.File})
	defer logger.Sync(log)
	log.Info("Starting Typing Simulator", "mode", *mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Settings, engine and paste controller
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := stealth.NewRand(seed)

	store := storage.NewJSONStore(cfg.SettingsPath, log)
	settings := paste.LoadSettings(store, cfg.Typing.Settings, log)

	engine := typing.New(typing.DefaultConfig(), log, typing.WithRand(rng), typing.WithObserver(logSession(log)))
	defer engine.Shutdown()
	ctrl := paste.NewController(engine, store, settings, cfg.Typing.HesitationDelay, log)

	switch *mode {
	case "browser":
		err = runBrowser(ctx, cfg, log, rng, store, ctrl)
	case "demo":
		err = runDemo(ctx, ctrl, *text)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, typing.ErrCancelled) {
		log.Error("Typing Simulator stopped with error", "error", err)
		logger.Sync(log)
		os.Exit(1)
	}
	log.Info("Typing Simulator stopped")
}

func runBrowser(ctx context.Context, cfg *config.Config, log logger.Logger, rng stealth.Rand, store *storage.JSONStore, ctrl *paste.Controller) error {
	log.Info("Initializing Browser...")
	b, err := browser.New(ctx, cfg, log, rng)
	if err != nil {
		return err
	}
	defer b.Close()

	unhook, err := b.InstallPasteHook(ctx, ctrl)
	if err != nil {
		return err
	}
	defer unhook()

	if err := b.NavigateTo(ctx, cfg.StartURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", cfg.StartURL, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := store.Watch(gctx, ctrl.Reload); err != nil {
		log.Warn("Settings hot reload disabled", "error", err)
	}

	if cfg.SocketPath != "" {
		ln, err := listenUnix(cfg.SocketPath)
		if err != nil {
			return err
		}
		srv := messaging.NewServer(messaging.New(ctrl, log), ln)
		log.Info("Accepting settings messages", "socket", cfg.SocketPath)
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	log.Info("Ready, paste into any text field", "url", cfg.StartURL)
	return g.Wait()
}

// listenUnix removes a stale socket file before listening
func listenUnix(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return ln, nil
}

func runDemo(ctx context.Context, ctrl *paste.Controller, text string) error {
	field := surface.NewValueBuffer("demo", surface.OnChange(func(content string) {
		fmt.Printf("\r\033[K%s", content)
	}))

	sess, err := ctrl.HandlePaste(ctx, text, func(context.Context) (surface.Surface, error) {
		return field, nil
	})
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Println("Simulator disabled or nothing to type, paste left untouched")
		return nil
	}

	err = sess.Wait()
	fmt.Println()
	return err
}

func logSession(log logger.Logger) typing.Observer {
	return func(s *typing.Session, state typing.State) {
		log.Debug("Session state changed", "session", s.ID(), "surface", s.SurfaceID(), "state", state.String(), "committed", s.Committed())
	}
}
