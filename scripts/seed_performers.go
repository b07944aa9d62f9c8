package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"vitrina/internal/config"
	"vitrina/internal/database"
	"vitrina/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type PerformersFile struct {
	Performers []models.Performer `yaml:"performers"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		performersPath = flag.String("performers", "configs/performers.yaml", "path to performers.yaml")
		dbPath         = flag.String("db", "./data/vitrina.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*performersPath)
	if err != nil {
		return fmt.Errorf("read performers: %w", err)
	}
	var file PerformersFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse performers: %w", err)
	}
	if len(file.Performers) == 0 {
		return fmt.Errorf("no performers in yaml")
	}
	if err = config.ValidatePerformers(file.Performers); err != nil {
		return err
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	before, err := db.ListPerformers(ctx)
	if err != nil {
		return fmt.Errorf("list performers: %w", err)
	}
	if err = db.SyncPerformers(ctx, file.Performers); err != nil {
		return fmt.Errorf("sync performers: %w", err)
	}
	after, err := db.ListPerformers(ctx)
	if err != nil {
		return fmt.Errorf("list performers: %w", err)
	}

	fmt.Printf("done: created=%d updated=%d\n", len(after)-len(before), len(file.Performers)-(len(after)-len(before)))
	return nil
}
