package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/MrEthical07/authgate/internal/config"
	"github.com/MrEthical07/authgate/store/postgres"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	dsn := config.DatabaseURL()
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "authgate-migrate: DATABASE_URL is not set")
		os.Exit(2)
	}

	if err := postgres.Migrate(dsn, postgres.Direction(*direction)); err != nil {
		fmt.Fprintf(os.Stderr, "authgate-migrate: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("migrations applied (%s)\n", *direction)
}
