package main

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hullwatch/hullwatch/pkg/config"
)

const (
	// PasswordLength is the default length for generated passwords
	PasswordLength = 24
	// Charset for password generation. Shell- and DSN-safe.
	passwordCharset = "abcdefghijklmnopqrstuvwxyz" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"0123456789"
)

// Config holds the provisioning configuration
type Config struct {
	PostgresHost     string
	PostgresPort     int
	PostgresAdmin    string
	PostgresPassword string
	DBName           string
	DBUser           string
	DBPassword       string
	SSLMode          string
	ConfigDBPath     string
}

// ConnString builds a keyword/value connection string for the given database
// and credentials.
func (c *Config) ConnString(dbname, user, password string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, user, password, dbname, c.SSLMode)
}

func (c *Config) adminConn(dbname string) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.ConnString(dbname, c.PostgresAdmin, c.PostgresPassword))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return db, nil
}

// GeneratePassword generates a cryptographically secure random password
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = PasswordLength
	}

	password := make([]byte, length)
	charsetLen := big.NewInt(int64(len(passwordCharset)))

	for i := range password {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		password[i] = passwordCharset[num.Int64()]
	}

	return string(password), nil
}

// DisplayPasswordWarning prints a prominent warning with the generated password
func DisplayPasswordWarning(password string) {
	fmt.Println()
	fmt.Println("🔐 Generated Password")
	fmt.Println("=====================")
	fmt.Println()
	fmt.Println("  ⚠️  SAVE THIS PASSWORD - IT WON'T BE SHOWN AGAIN")
	fmt.Println()
	fmt.Printf("  %sPassword: %s%s%s\n", colorBold, colorBrightCyan, password, colorReset)
	fmt.Println()
	fmt.Println("The password has been saved to your config database")
	fmt.Println("and will be used by hullwatch automatically.")
	fmt.Println()
}

// PreflightChecks runs all pre-flight validation checks
func PreflightChecks(cfg *Config) error {
	fmt.Println("🔍 Pre-flight Checks")

	db, err := cfg.adminConn("postgres")
	if err != nil {
		return fmt.Errorf("❌ PostgreSQL connection failed: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("❌ PostgreSQL connection failed: %w", err)
	}

	var version string
	if err := db.QueryRow("SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("❌ PostgreSQL version query failed: %w", err)
	}
	fmt.Println("✅ PostgreSQL connection successful")

	dbExists, userExists, err := existingResources(db, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to check existing resources: %w", err)
	}
	if dbExists {
		fmt.Printf("⚠️  Database '%s' already exists and will be reused\n", cfg.DBName)
	}
	if userExists {
		fmt.Printf("⚠️  User '%s' already exists; its password will be rotated\n", cfg.DBUser)
	}
	if !dbExists && !userExists {
		fmt.Println("✅ No existing database/user conflicts")
	}

	fmt.Println()
	return nil
}

func existingResources(db *sql.DB, cfg *Config) (dbExists, userExists bool, err error) {
	if err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&dbExists); err != nil {
		return false, false, err
	}
	if err = db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", cfg.DBUser).Scan(&userExists); err != nil {
		return false, false, err
	}
	return dbExists, userExists, nil
}

// EnsureUser creates the database user, or rotates its password when it
// already exists, so the credentials written to the config database always
// work.
func EnsureUser(cfg *Config) error {
	fmt.Println("👤 Creating User")

	db, err := cfg.adminConn("postgres")
	if err != nil {
		return err
	}
	defer db.Close()

	var exists bool
	if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", cfg.DBUser).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check for existing user: %w", err)
	}

	if exists {
		alterSQL := fmt.Sprintf("ALTER USER %s WITH PASSWORD '%s'", cfg.DBUser, cfg.DBPassword)
		if _, err := db.Exec(alterSQL); err != nil {
			return fmt.Errorf("failed to rotate password: %w", err)
		}
		fmt.Printf("✅ User '%s' exists; password rotated\n", cfg.DBUser)
	} else {
		createSQL := fmt.Sprintf("CREATE USER %s WITH PASSWORD '%s'", cfg.DBUser, cfg.DBPassword)
		if _, err := db.Exec(createSQL); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Printf("✅ User '%s' created\n", cfg.DBUser)
	}

	fmt.Println()
	return nil
}

// EnsureDatabase creates the results database owned by the hullwatch user.
// An existing database is left alone; CREATE DATABASE has no IF NOT EXISTS.
func EnsureDatabase(cfg *Config) error {
	fmt.Println("🗄️  Creating Database")

	db, err := cfg.adminConn("postgres")
	if err != nil {
		return err
	}
	defer db.Close()

	var exists bool
	if err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check for existing database: %w", err)
	}
	if exists {
		fmt.Printf("✅ Database '%s' already exists\n", cfg.DBName)
		fmt.Println()
		return nil
	}

	createDBSQL := fmt.Sprintf(`
		CREATE DATABASE %s
		OWNER %s
		ENCODING 'UTF8'
		TEMPLATE template0
	`, cfg.DBName, cfg.DBUser)

	if _, err := db.Exec(createDBSQL); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	fmt.Printf("✅ Database '%s' created with UTF8 encoding\n", cfg.DBName)
	fmt.Println()
	return nil
}

// GrantPrivileges grants all necessary privileges to the database user
func GrantPrivileges(cfg *Config) error {
	db, err := cfg.adminConn("postgres")
	if err != nil {
		return err
	}
	defer db.Close()

	grantDBSQL := fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", cfg.DBName, cfg.DBUser)
	if _, err := db.Exec(grantDBSQL); err != nil {
		return fmt.Errorf("failed to grant database privileges: %w", err)
	}
	fmt.Printf("✅ Database privileges granted\n")

	targetDB, err := cfg.adminConn(cfg.DBName)
	if err != nil {
		return err
	}
	defer targetDB.Close()

	grants := []string{
		fmt.Sprintf("GRANT ALL ON SCHEMA public TO %s", cfg.DBUser),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT ALL ON TABLES TO %s", cfg.DBUser),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT ALL ON SEQUENCES TO %s", cfg.DBUser),
	}
	for _, grant := range grants {
		if _, err := targetDB.Exec(grant); err != nil {
			return fmt.Errorf("failed to grant schema privileges: %w", err)
		}
	}
	fmt.Printf("✅ Schema and default privileges granted\n")
	fmt.Println()

	return nil
}

// DropExistingResources drops the database and user ahead of a reprovision.
func DropExistingResources(cfg *Config) error {
	fmt.Println("🗑️  Dropping Existing Resources")

	db, err := cfg.adminConn("postgres")
	if err != nil {
		return err
	}
	defer db.Close()

	// Disconnect any live sessions first or the drop will fail.
	_, err = db.Exec(`
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`, cfg.DBName)
	if err != nil {
		return fmt.Errorf("failed to terminate connections: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", cfg.DBName)); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	fmt.Printf("✅ Database '%s' dropped\n", cfg.DBName)

	if _, err := db.Exec(fmt.Sprintf("DROP USER IF EXISTS %s", cfg.DBUser)); err != nil {
		return fmt.Errorf("failed to drop user: %w", err)
	}
	fmt.Printf("✅ User '%s' dropped\n", cfg.DBUser)

	return nil
}

// UpdateConfigDB writes the provisioned connection string into the hullwatch
// SQLite config database's storage section, creating the database if needed.
func UpdateConfigDB(cfg *Config) error {
	fmt.Println("⚙️  Updating Configuration")

	provider, err := config.NewSQLiteProvider(cfg.ConfigDBPath)
	if err != nil {
		return fmt.Errorf("failed to open config database: %w", err)
	}
	defer provider.Close()

	full, err := loadSections(provider)
	if err != nil {
		return err
	}

	if full.Storage.Postgres == nil {
		full.Storage.Postgres = &config.PostgresData{}
	}
	full.Storage.Postgres.ConnectionString = cfg.ConnString(cfg.DBName, cfg.DBUser, cfg.DBPassword)

	if err := provider.SaveConfig(full); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println("✅ Config database updated with connection details")
	fmt.Println()
	return nil
}

// loadSections reads the stored sections directly, without the environment
// overlay, so saving writes back only what the file already held.
func loadSections(provider *config.SQLiteProvider) (*config.ConfigData, error) {
	full := &config.ConfigData{}

	pipe, err := provider.GetPipeline()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	full.Pipeline = *pipe

	ing, err := provider.GetIngest()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	full.Ingest = *ing

	model, err := provider.GetModel()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	full.Model = *model

	storage, err := provider.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	full.Storage = *storage

	controllers, err := provider.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	full.Controllers = controllers

	return full, nil
}

// StoredConnString reads the warehouse connection string from the config
// database.
func StoredConnString(configDBPath string) (string, error) {
	provider, err := config.NewSQLiteProvider(configDBPath)
	if err != nil {
		return "", fmt.Errorf("failed to open config database: %w", err)
	}
	defer provider.Close()

	storage, err := provider.GetStorageConfig()
	if err != nil {
		return "", fmt.Errorf("failed to read storage config: %w", err)
	}
	if storage.Postgres == nil || storage.Postgres.ConnectionString == "" {
		return "", fmt.Errorf("no PostgreSQL configuration found; run 'hullwatch-provisioner init' first")
	}
	return storage.Postgres.ConnectionString, nil
}

// TestConnection verifies the connection works and the user can create
// tables.
func TestConnection(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Test table creation permission
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS _provisioner_test (id SERIAL PRIMARY KEY)"); err != nil {
		return fmt.Errorf("failed to create test table: %w", err)
	}
	if _, err := db.Exec("DROP TABLE IF EXISTS _provisioner_test"); err != nil {
		return fmt.Errorf("failed to drop test table: %w", err)
	}

	return nil
}

var passwordPattern = regexp.MustCompile(`password=\S+`)

// MaskPassword hides the password value in a keyword/value connection string.
func MaskPassword(connStr string) string {
	return passwordPattern.ReplaceAllString(connStr, "password=****")
}
