// Command migrate applies pending schema migrations to the Postgres
// database named by POSTGRES_DSN (spec.md §6.2's fixed schema).
package main

import (
	"fmt"
	"os"

	"bistro-server/internal/config"
	"bistro-server/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate: load config:", err)
		os.Exit(1)
	}

	if err := store.Migrate(cfg.Postgres.DSN); err != nil {
		fmt.Fprintln(os.Stderr, "migrate: apply migrations:", err)
		os.Exit(1)
	}

	fmt.Println("migrate: schema up to date")
}
