package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
)

// Color constants
const (
	colorReset      = "\033[0m"
	colorBrightCyan = "\033[96m"
	colorBold       = "\033[1m"
)

const (
	DefaultDBName    = "hullwatch"
	DefaultDBUser    = "hullwatch"
	DefaultHost      = "localhost"
	DefaultPort      = 5432
	DefaultSSLMode   = "prefer"
	DefaultConfigDB  = "/var/lib/hullwatch/config.db"
	DefaultAdminUser = "postgres"
)

func main() {
	// Define command-line flags
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)
	testCmd := flag.NewFlagSet("test", flag.ExitOnError)

	// Init command flags
	dbName := initCmd.String("db-name", DefaultDBName, "Database name to create")
	dbUser := initCmd.String("db-user", DefaultDBUser, "Database user to create")
	postgresHost := initCmd.String("postgres-host", DefaultHost, "PostgreSQL host")
	postgresPort := initCmd.Int("postgres-port", DefaultPort, "PostgreSQL port")
	postgresAdmin := initCmd.String("postgres-admin", DefaultAdminUser, "PostgreSQL admin user")
	postgresAdminPassword := initCmd.String("postgres-admin-password", "", "PostgreSQL admin password (or use POSTGRES_ADMIN_PASSWORD env var)")
	sslMode := initCmd.String("ssl-mode", DefaultSSLMode, "SSL mode (disable, require, prefer)")
	configDB := initCmd.String("config-db", DefaultConfigDB, "Path to the hullwatch config database (empty to skip the config update)")
	reprovision := initCmd.Bool("reprovision", false, "Drop existing database and user before provisioning (DESTRUCTIVE)")

	// Status command flags
	statusConfigDB := statusCmd.String("config-db", DefaultConfigDB, "Path to the hullwatch config database")

	// Test command flags
	testConfigDB := testCmd.String("config-db", DefaultConfigDB, "Path to the hullwatch config database")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		runInit(&Config{
			PostgresHost:     *postgresHost,
			PostgresPort:     *postgresPort,
			PostgresAdmin:    *postgresAdmin,
			PostgresPassword: *postgresAdminPassword,
			DBName:           *dbName,
			DBUser:           *dbUser,
			SSLMode:          *sslMode,
			ConfigDBPath:     *configDB,
		}, *reprovision)

	case "status":
		statusCmd.Parse(os.Args[2:])
		runStatus(*statusConfigDB)

	case "test":
		testCmd.Parse(os.Args[2:])
		runTest(*testConfigDB)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("HullWatch Results Warehouse Provisioner")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hullwatch-provisioner init [flags]")
	fmt.Println("  hullwatch-provisioner status [flags]")
	fmt.Println("  hullwatch-provisioner test [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init     Provision the PostgreSQL database and user")
	fmt.Println("  status   Show the stored connection details from the config database")
	fmt.Println("  test     Test the stored database connection")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Standard usage")
	fmt.Printf("  %s%shullwatch-provisioner init --config-db ./config.db%s\n", colorBold, colorBrightCyan, colorReset)
	fmt.Println()
	fmt.Println("  # If you know your postgres password, set it via environment variable")
	fmt.Printf("  %sexport POSTGRES_ADMIN_PASSWORD='yourpassword'%s\n", colorBrightCyan, colorReset)
	fmt.Printf("  %shullwatch-provisioner init%s\n", colorBrightCyan, colorReset)
	fmt.Println()
	fmt.Println("  # Custom configuration")
	fmt.Println("  hullwatch-provisioner init \\")
	fmt.Println("    --db-name fleetresults \\")
	fmt.Println("    --postgres-host 192.168.1.100 \\")
	fmt.Println("    --postgres-admin-password secret")
	fmt.Println()
	fmt.Println("  # Re-provision (drop and recreate)")
	fmt.Println("  hullwatch-provisioner init --reprovision")
}

func runInit(cfg *Config, reprovision bool) {
	fmt.Println("🚀 HullWatch Results Warehouse Provisioner")
	fmt.Println("==========================================")
	fmt.Println()

	// Get admin password from env if not provided
	if cfg.PostgresPassword == "" {
		cfg.PostgresPassword = os.Getenv("POSTGRES_ADMIN_PASSWORD")
	}

	// Show configuration
	fmt.Println("Configuration:")
	fmt.Printf("  PostgreSQL Host: %s:%d\n", cfg.PostgresHost, cfg.PostgresPort)
	fmt.Printf("  Database Name: %s\n", cfg.DBName)
	fmt.Printf("  Database User: %s\n", cfg.DBUser)
	fmt.Printf("  SSL Mode: %s\n", cfg.SSLMode)
	if cfg.ConfigDBPath != "" {
		fmt.Printf("  Config DB: %s\n", cfg.ConfigDBPath)
	}
	fmt.Println()

	// Generate password for database user
	dbPassword, err := GeneratePassword(PasswordLength)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to generate password: %v\n", err)
		os.Exit(1)
	}
	cfg.DBPassword = dbPassword

	// Handle reprovision flag
	if reprovision {
		fmt.Println("⚠️  DESTRUCTIVE OPERATION WARNING")
		fmt.Println("=================================")
		fmt.Println()
		fmt.Printf("This will DROP the following resources if they exist:\n")
		fmt.Printf("  • Database: %s\n", cfg.DBName)
		fmt.Printf("  • User: %s\n", cfg.DBUser)
		fmt.Println()
		fmt.Println("⚠️  ALL DATA IN THE DATABASE WILL BE PERMANENTLY DELETED")
		fmt.Println()

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Type 'yes' to confirm you understand and want to proceed: ")
		confirmation, _ := reader.ReadString('\n')
		confirmation = strings.TrimSpace(confirmation)

		if confirmation != "yes" {
			fmt.Println("❌ Operation cancelled")
			os.Exit(0)
		}
		fmt.Println()

		if err := DropExistingResources(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to drop existing resources: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
	}

	// Run pre-flight checks
	if err := PreflightChecks(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Create user and database
	if err := EnsureUser(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create user: %v\n", err)
		os.Exit(1)
	}
	if err := EnsureDatabase(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create database: %v\n", err)
		os.Exit(1)
	}
	if err := GrantPrivileges(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to grant privileges: %v\n", err)
		os.Exit(1)
	}

	// Display generated password
	DisplayPasswordWarning(dbPassword)

	// Update the config database
	if cfg.ConfigDBPath != "" {
		if err := UpdateConfigDB(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to update config database: %v\n", err)
			os.Exit(1)
		}
	}

	// Test connection
	fmt.Println("🔍 Verifying Connection")
	if err := TestConnection(cfg.ConnString(cfg.DBName, cfg.DBUser, cfg.DBPassword)); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Connection test failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Connection verified")
	fmt.Println()

	// Print success message
	fmt.Println("✅ Provisioning Complete!")
	fmt.Println()
	fmt.Println("Connection Details:")
	fmt.Printf("  Host: %s:%d\n", cfg.PostgresHost, cfg.PostgresPort)
	fmt.Printf("  Database: %s\n", cfg.DBName)
	fmt.Printf("  User: %s\n", cfg.DBUser)
	fmt.Printf("  SSL Mode: %s\n", cfg.SSLMode)
	fmt.Println()
	fmt.Println("Next Steps:")
	fmt.Println("  1. Start hullwatch:")
	fmt.Printf("     %s%s./hullwatch -config %s%s\n", colorBold, colorBrightCyan, configPathOrDefault(cfg.ConfigDBPath), colorReset)
	fmt.Println()
	fmt.Println("  2. hullwatch will automatically:")
	fmt.Println("     ✓ Connect to the results warehouse")
	fmt.Println("     ✓ Create all result and run tables")
	fmt.Println("     ✓ Store every pipeline run")
	fmt.Println()
	fmt.Println("Manual Connection (if needed):")
	fmt.Printf("  %spsql -h %s -p %d -U %s -d %s%s\n", colorBrightCyan, cfg.PostgresHost, cfg.PostgresPort, cfg.DBUser, cfg.DBName, colorReset)
	fmt.Println()
}

func configPathOrDefault(path string) string {
	if path == "" {
		return "config.db"
	}
	return path
}

func runStatus(configDB string) {
	fmt.Println("📊 Current Results Warehouse Configuration")
	fmt.Println("==========================================")
	fmt.Println()

	connStr, err := StoredConnString(configDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to read configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connection: %s\n", MaskPassword(connStr))
	fmt.Println()
}

func runTest(configDB string) {
	fmt.Println("🔍 Testing Results Warehouse Connection")
	fmt.Println("=======================================")
	fmt.Println()

	connStr, err := StoredConnString(configDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to read configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing connection to %s...\n", MaskPassword(connStr))

	if err := TestConnection(connStr); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Connection test failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Connection successful")
	fmt.Println("✅ User has table creation privileges")
	fmt.Println()
}
