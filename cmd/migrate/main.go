// Command migrate applies the goose migrations for the clickhouse
// storage backend. The xlsx and mock backends have no schema to manage.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

const migrationsDir = "./migrations"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	db, err := openClickHouse()
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("clickhouse"); err != nil {
		log.Fatalf("Failed to set goose dialect: %v", err)
	}

	log.Printf("Running migration command: %s", command)
	if err := run(db, command); err != nil {
		log.Fatal(err)
	}
	log.Println("Done")
}

func openClickHouse() (*sql.DB, error) {
	dsn := fmt.Sprintf("clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&max_execution_time=60",
		envOr("CLICKHOUSE_USER", "default"),
		os.Getenv("CLICKHOUSE_PASSWORD"),
		envOr("CLICKHOUSE_HOST", "localhost"),
		envOr("CLICKHOUSE_PORT", "9000"),
		envOr("CLICKHOUSE_DATABASE", "default"),
	)
	if os.Getenv("CLICKHOUSE_USE_TLS") == "true" {
		dsn += "&secure=true"
	}

	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func run(db *sql.DB, command string) error {
	switch command {
	case "up":
		return goose.Up(db, migrationsDir)
	case "down":
		return goose.Down(db, migrationsDir)
	case "status":
		return goose.Status(db, migrationsDir)
	case "version":
		version, err := goose.GetDBVersion(db)
		if err != nil {
			return err
		}
		log.Printf("Current migration version: %d", version)
		return nil
	case "create":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: migrate create <name>")
		}
		return goose.Create(db, migrationsDir, os.Args[2], "sql")
	default:
		return fmt.Errorf("unknown command %q (want up, down, status, version, or create)", command)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
