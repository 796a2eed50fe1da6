package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/hullwatch/hullwatch/pkg/config"
)

var mismatches int

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("=============================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	yamlConfig, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nComparison Results:")
	fmt.Println("===================")

	compareSection("Pipeline", yamlConfig.Pipeline, sqliteConfig.Pipeline)
	compareSection("Ingest", yamlConfig.Ingest, sqliteConfig.Ingest)
	compareSection("Model", yamlConfig.Model, sqliteConfig.Model)

	fmt.Println("\nStorage Configuration:")
	compareStorage(yamlConfig.Storage, sqliteConfig.Storage)

	fmt.Printf("\nControllers - YAML: %d, SQLite: %d\n", len(yamlConfig.Controllers), len(sqliteConfig.Controllers))
	if len(yamlConfig.Controllers) == len(sqliteConfig.Controllers) {
		for i, yamlController := range yamlConfig.Controllers {
			sqliteController := sqliteConfig.Controllers[i]
			if compareControllers(yamlController, sqliteController) {
				fmt.Printf("✓ Controller %s matches\n", yamlController.Type)
			} else {
				report("✗ Controller %s differs", yamlController.Type)
			}
		}
	} else {
		report("✗ Controller count mismatch")
	}

	if mismatches > 0 {
		fmt.Printf("\nTest completed: %d mismatch(es)\n", mismatches)
		os.Exit(1)
	}
	fmt.Println("\nTest completed: configurations match")
}

func report(format string, args ...any) {
	mismatches++
	fmt.Printf(format+"\n", args...)
}

func compareSection(name string, yaml, sqlite any) {
	if reflect.DeepEqual(yaml, sqlite) {
		fmt.Printf("✓ %s section matches\n", name)
	} else {
		report("✗ %s section differs\n  YAML:   %+v\n  SQLite: %+v", name, yaml, sqlite)
	}
}

func compareStorage(yaml, sqlite config.StorageData) {
	compareBackend("PostgreSQL", yaml.Postgres, sqlite.Postgres)
	compareBackend("SQLite archive", yaml.SQLite, sqlite.SQLite)
	compareBackend("CSV reports", yaml.CSV, sqlite.CSV)
}

// compareBackend handles the three pointer-valued backend sections, where
// absence is itself configuration.
func compareBackend[T any](name string, yaml, sqlite *T) {
	switch {
	case (yaml == nil) != (sqlite == nil):
		report("✗ %s configuration presence mismatch", name)
	case yaml == nil:
		fmt.Printf("✓ %s: both unset\n", name)
	case reflect.DeepEqual(*yaml, *sqlite):
		fmt.Printf("✓ %s configuration matches\n", name)
	default:
		report("✗ %s configuration differs", name)
	}
}

func compareControllers(yaml, sqlite config.ControllerData) bool {
	if yaml.Type != sqlite.Type {
		return false
	}

	if (yaml.RESTServer == nil) != (sqlite.RESTServer == nil) {
		return false
	}
	if yaml.RESTServer != nil && !reflect.DeepEqual(*yaml.RESTServer, *sqlite.RESTServer) {
		return false
	}

	if (yaml.OceanConditions == nil) != (sqlite.OceanConditions == nil) {
		return false
	}
	if yaml.OceanConditions != nil && !reflect.DeepEqual(*yaml.OceanConditions, *sqlite.OceanConditions) {
		return false
	}

	if (yaml.PipelineCache == nil) != (sqlite.PipelineCache == nil) {
		return false
	}
	if yaml.PipelineCache != nil && !reflect.DeepEqual(*yaml.PipelineCache, *sqlite.PipelineCache) {
		return false
	}

	return true
}
