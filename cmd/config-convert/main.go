package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hullwatch/hullwatch/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	// Loading layers environment overrides on top of the file, so run the
	// conversion with a clean environment to capture the file as written.
	fmt.Printf("Loading YAML configuration...\n")
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	configData, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	if err := configData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration is not valid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  Loaded %d controllers\n", len(configData.Controllers))

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	// Opening the provider creates the database and its schema.
	fmt.Printf("Creating SQLite configuration database...\n")
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite database: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	fmt.Printf("Loading configuration into SQLite database...\n")
	if err := sqliteProvider.SaveConfig(configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration into SQLite: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: hullwatch -config sqlite:%s\n", *sqliteFile)
}

func printConfigSummary(configData *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")

	fmt.Println("Ingest:")
	fmt.Printf("  - Events: %s\n", orUnset(configData.Ingest.EventsPath))
	fmt.Printf("  - Consumption: %s\n", orUnset(configData.Ingest.ConsumptionPath))
	fmt.Printf("  - Drydock: %s\n", orUnset(configData.Ingest.DrydockPath))

	fmt.Println("Model:")
	if configData.Model.Path == "" {
		fmt.Println("  - Built-in heuristic predictor")
	} else {
		fmt.Printf("  - Ensemble: %s\n", configData.Model.Path)
	}

	fmt.Println("Storage Backends:")
	if configData.Storage.Postgres != nil {
		fmt.Printf("  - PostgreSQL: %s\n", configData.Storage.Postgres.ConnectionString)
	}
	if configData.Storage.SQLite != nil {
		fmt.Printf("  - SQLite archive: %s\n", configData.Storage.SQLite.Path)
	}
	if configData.Storage.CSV != nil {
		fmt.Printf("  - CSV reports: %s\n", configData.Storage.CSV.Directory)
	}

	fmt.Printf("Controllers (%d):\n", len(configData.Controllers))
	for _, controller := range configData.Controllers {
		fmt.Printf("  - %s\n", controller.Type)
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
