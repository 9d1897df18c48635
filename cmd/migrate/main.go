package main

import (
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"freedash/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := NewRootCommand(openMigrate).Execute(); err != nil {
		logger.Get().Fatalf("Migration error: %v", err)
	}
}

func openMigrate(source, databaseURL string) (Migrator, error) {
	return migrate.New(source, databaseURL)
}
