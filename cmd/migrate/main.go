package main

import (
	"fmt"
	"os"

	"github.com/SaravananKiruba/boolapos-sub001/config"
	"github.com/SaravananKiruba/boolapos-sub001/models"
)

// migrate runs AutoMigrate as a standalone job so the API can start
// with SKIP_MIGRATIONS=true and never block on DDL.
func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	models.MigrateTable()
	fmt.Println("migrations applied")
}
