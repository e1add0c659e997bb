package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"idle_tapper/internal/db"
	"idle_tapper/internal/logger"
	"idle_tapper/internal/migrations"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations (default lists them)")
	flag.Parse()

	if !*apply {
		all, err := migrations.All()
		if err != nil {
			logger.Fatal("read migrations", "error", err)
		}
		for _, m := range all {
			fmt.Println(m.Name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		logger.Fatal("connect", "error", err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	for _, name := range applied {
		fmt.Printf("applied %s\n", name)
	}
	if err != nil {
		logger.Fatal("migrate", "error", err)
	}
}
