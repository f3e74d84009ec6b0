package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/clubsite"
	"github.com/eringen/clubsite/content"
	"github.com/eringen/clubsite/remote"
	"github.com/eringen/clubsite/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default clubsite.yml)")
	flag.Usage = printUsage
	flag.Parse()

	cmd := "serve"
	args := flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "version":
		fmt.Printf("clubsite %s\n", version)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	cfg, err := clubsite.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := clubsite.NewLogger(cfg)
	defer logger.Sync()

	switch cmd {
	case "serve":
		err = serve(cfg, logger)
	case "migrate":
		err = remote.Migrate(cfg.DatabaseURL, logger)
	case "approve", "unapprove":
		if len(args) != 1 {
			err = fmt.Errorf("usage: clubsite %s <testimonial-id>", cmd)
			break
		}
		err = approve(cfg, logger, args[0], cmd == "approve")
	case "role":
		if len(args) != 2 || (args[1] != content.RoleAdmin && args[1] != content.RoleUser) {
			err = errors.New("usage: clubsite role <email> <admin|user>")
			break
		}
		err = setRole(cfg, logger, args[0], args[1])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", zap.String("command", cmd), zap.Error(err))
		os.Exit(1)
	}
}

func serve(cfg clubsite.SiteConfig, logger *zap.Logger) error {
	if err := remote.Migrate(cfg.DatabaseURL, logger); err != nil {
		return err
	}
	app := clubsite.New(cfg, views.New(cfg), clubsite.WithLogger(logger))
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errc
}

// approve flips a testimonial's approved flag. This is the only way
// testimonials reach the public pages.
func approve(cfg clubsite.SiteConfig, logger *zap.Logger, id string, approved bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := openClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	var approver content.Approver = content.NewTestimonialRepository(client, content.WithLogger(logger))
	if err := approver.SetApproved(ctx, id, approved); err != nil {
		return err
	}
	logger.Info("testimonial updated", zap.String("id", id), zap.Bool("approved", approved))
	return nil
}

// setRole records the profile role checked at admin sign-in.
func setRole(cfg clubsite.SiteConfig, logger *zap.Logger, email, role string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := openClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := content.NewProfileRepository(client, content.WithLogger(logger)).Upsert(ctx, email, role); err != nil {
		return err
	}
	logger.Info("profile updated", zap.String("email", email), zap.String("role", role))
	return nil
}

func openClient(ctx context.Context, cfg clubsite.SiteConfig, logger *zap.Logger) (*remote.Client, error) {
	backend, err := remote.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	return remote.NewClient(backend), nil
}

func printUsage() {
	fmt.Println(`clubsite - the computer club website

Usage:
  clubsite [-config file] <command> [arguments]

Commands:
  serve               Run the web server (default)
  migrate             Apply database migrations
  approve <id>        Show a testimonial on the public pages
  unapprove <id>      Hide a testimonial again
  role <email> <role> Set a profile role (admin or user)
  version             Print the clubsite version
  help                Show this help message

Configuration is read from clubsite.yml (or CLUB_CONFIG), a .env file and
CLUB_* environment variables.`)
}
