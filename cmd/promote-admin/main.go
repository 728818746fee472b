// Command promote-admin grants the admin role to an existing user. Promotion
// over HTTP already requires an admin, so the first one is made here.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brainshare/backend/internal/config"
	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/services"
	"github.com/brainshare/backend/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	email := flag.String("email", "", "email of the user to promote")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote-admin -email user@example.com [-config config.yaml]")
		os.Exit(2)
	}

	if err := run(*configPath, *email); err != nil {
		slog.Error("promotion failed", "email", *email, "error", err)
		os.Exit(1)
	}
}

func run(configPath, email string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(core.NewLogger(os.Stderr, cfg.Log))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	n, err := services.NewUserService(query.NewEngine(store)).Promote(ctx, email)
	if err != nil {
		return err
	}
	if n == 0 {
		slog.Info("user is already an admin", "email", email)
		return nil
	}
	slog.Info("user promoted to admin", "email", email)
	return nil
}
