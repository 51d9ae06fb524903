package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"match-lab/repositories"
)

// config is the viewer's own minimal surface; it deliberately does not
// share the server config, so the tool runs with a single variable set.
type config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
}

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the server) holds the lock
	opts := badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Render every presence record
	records, err := repositories.NewPresenceRepository(db).All()
	if err != nil {
		log.Fatalf("Failed to scan presence records: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No presence records found")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Identity", "Status", "Updated At"})

	for _, record := range records {
		status := color.Red.Sprint("offline")
		if record.Online {
			status = color.Green.Sprint("online")
		}
		table.Append([]string{
			record.Identity.String(),
			status,
			record.UpdatedAt.Local().Format(time.RFC822),
		})
	}

	table.Render()
	online := lo.CountBy(records, func(r repositories.PresenceRecord) bool { return r.Online })
	fmt.Printf("%d record(s), %d online\n", len(records), online)
}
