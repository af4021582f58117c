//go:build ignore

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	keepHistory := flag.Bool("keep-history", false, "leave cycle_runs untouched")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	queries := []string{"TRUNCATE TABLE events"}
	if !*keepHistory {
		queries = append(queries, "TRUNCATE TABLE cycle_runs")
	}

	for _, query := range queries {
		fmt.Printf("Executing: %s\n", query)
		if _, err := db.Exec(query); err != nil {
			log.Fatalf("failed to execute %s: %v", query, err)
		}
	}

	fmt.Println("✓ Event store cleared")
}
