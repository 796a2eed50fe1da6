package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hullwatch/hullwatch/internal/app"
	"github.com/hullwatch/hullwatch/internal/constants"
	"github.com/hullwatch/hullwatch/internal/log"
	"github.com/hullwatch/hullwatch/pkg/config"
)

func main() {
	cfgSource := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml, fleet.yaml\n\t\t\t  SQLite: config.db, fleet.db\n\t\t\t  Prefix with 'yaml:' or 'sqlite:' to force a backend")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hullwatch %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Secrets may live in a .env beside the binary rather than the config
	config.LoadDotEnv()

	provider, err := config.NewProvider(*cfgSource)
	if err != nil {
		log.Errorf("Failed to open configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		log.Errorf("Failed to load configuration. Did you pass the -config flag? Run with -h for help: %v", err)
		os.Exit(1)
	}
	if err := cfgData.Validate(); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	// Create and run the application
	application := app.New(provider, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}
