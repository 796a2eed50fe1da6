package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// restoreTables holds the warehouse tables a backup may be loaded into.
var restoreTables = map[string]bool{
	"biofouling_results": true,
	"ship_summaries":     true,
	"pipeline_runs":      true,
	"prediction_log":     true,
}

type Config struct {
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	SSLMode   string
	Table     string
	CSVFile   string
	BatchSize int
	Truncate  bool
}

func main() {
	var cfg Config

	// Parse command line flags
	flag.StringVar(&cfg.Host, "host", "localhost", "Database host")
	flag.IntVar(&cfg.Port, "port", 5432, "Database port")
	flag.StringVar(&cfg.Database, "database", "hullwatch", "Database name")
	flag.StringVar(&cfg.User, "user", "hullwatch", "Database user")
	flag.StringVar(&cfg.Password, "password", "", "Database password")
	flag.StringVar(&cfg.SSLMode, "sslmode", "disable", "SSL mode (disable, require, etc)")
	flag.StringVar(&cfg.Table, "table", "biofouling_results", "Table to restore into: biofouling_results, ship_summaries, pipeline_runs, or prediction_log")
	flag.StringVar(&cfg.CSVFile, "file", "", "CSV file to restore from (required)")
	flag.IntVar(&cfg.BatchSize, "batch", 1000, "Number of rows to insert per batch")
	flag.BoolVar(&cfg.Truncate, "truncate", false, "Delete existing rows in the table before restoring")
	flag.Parse()

	if cfg.CSVFile == "" {
		log.Fatal("CSV file is required. Use -file flag")
	}
	if !restoreTables[cfg.Table] {
		log.Fatalf("Unknown table: %s. Must be biofouling_results, ship_summaries, pipeline_runs, or prediction_log", cfg.Table)
	}

	// Build connection string
	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Printf("Connected to database %s@%s:%d", cfg.Database, cfg.Host, cfg.Port)

	// Open CSV file
	file, err := os.Open(cfg.CSVFile)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	// Get file size for progress tracking
	fileInfo, err := file.Stat()
	if err != nil {
		log.Fatalf("Failed to stat file: %v", err)
	}

	progress := &progressReader{
		reader: file,
		total:  fileInfo.Size(),
	}

	csvReader := csv.NewReader(progress)

	// Read header
	headers, err := csvReader.Read()
	if err != nil {
		log.Fatalf("Failed to read CSV headers: %v", err)
	}

	log.Printf("Found %d columns in CSV: %v", len(headers), headers)

	// Verify the target table exists and get its schema
	tableColumns, columnTypes, err := getTableColumns(ctx, pool, cfg.Table)
	if err != nil {
		log.Fatalf("Failed to get table schema: %v", err)
	}

	log.Printf("Table %s has %d columns", cfg.Table, len(tableColumns))

	// Check which CSV columns exist in the database
	var matchedColumns []string
	var missingColumns []string
	columnMap := make(map[string]bool)

	for _, col := range tableColumns {
		columnMap[col] = true
	}

	for _, header := range headers {
		if columnMap[header] {
			matchedColumns = append(matchedColumns, header)
		} else {
			missingColumns = append(missingColumns, header)
		}
	}

	if len(missingColumns) > 0 {
		log.Printf("WARNING: The following columns from CSV are not in the database and will be skipped: %v", missingColumns)
	}
	if len(matchedColumns) == 0 {
		log.Fatalf("No CSV columns match table %s; is this a backup of a different table?", cfg.Table)
	}

	log.Printf("Will import %d columns: %v", len(matchedColumns), matchedColumns)

	// Find indices of matched columns in the CSV
	columnIndices := make(map[string]int)
	for i, header := range headers {
		if columnMap[header] {
			columnIndices[header] = i
		}
	}

	if err := restoreData(ctx, pool, csvReader, cfg, matchedColumns, columnIndices, columnTypes, progress); err != nil {
		log.Fatalf("Failed to restore data: %v", err)
	}

	log.Println("Restore completed successfully!")
}

func getTableColumns(ctx context.Context, pool *pgxpool.Pool, tableName string) ([]string, map[string]string, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query table schema: %w", err)
	}
	defer rows.Close()

	var columns []string
	columnTypes := make(map[string]string)

	for rows.Next() {
		var column, dataType string
		if err := rows.Scan(&column, &dataType); err != nil {
			return nil, nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, column)
		columnTypes[column] = dataType
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row error: %w", err)
	}

	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("table %s not found or has no columns; run hullwatch once or hullwatch-provisioner first", tableName)
	}

	return columns, columnTypes, nil
}

// parseTimestamp parses the timestamp formats the export tools emit
func parseTimestamp(value string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04:05.999999 -0700 MST",
		"2006-01-02 15:04:05.999999 -0700",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999Z",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", value)
}

func restoreData(ctx context.Context, pool *pgxpool.Pool, reader *csv.Reader, cfg Config, columns []string, columnIndices map[string]int, columnTypes map[string]string, progress *progressReader) error {
	// Start transaction
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if cfg.Truncate {
		if _, err := tx.Exec(ctx, "DELETE FROM "+cfg.Table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", cfg.Table, err)
		}
		log.Printf("Cleared existing rows from %s", cfg.Table)
	}

	rows := make([][]interface{}, 0, cfg.BatchSize)
	rowCount := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		// Extract only the columns we need
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			csvIndex := columnIndices[col]
			if csvIndex < len(record) && record[csvIndex] != "" {
				value := record[csvIndex]
				colType := columnTypes[col]

				// Convert based on column type
				switch colType {
				case "timestamp with time zone", "timestamp without time zone":
					parsedTime, err := parseTimestamp(value)
					if err != nil {
						return fmt.Errorf("failed to parse timestamp for column %s: %w", col, err)
					}
					row[i] = parsedTime
				case "integer", "bigint", "smallint":
					intVal, err := strconv.ParseInt(value, 10, 64)
					if err != nil {
						row[i] = nil // Convert parse errors to NULL
					} else {
						row[i] = intVal
					}
				case "numeric", "real", "double precision":
					floatVal, err := strconv.ParseFloat(value, 64)
					if err != nil {
						row[i] = nil // Convert parse errors to NULL
					} else {
						row[i] = floatVal
					}
				case "boolean":
					row[i] = (value == "true" || value == "t" || value == "1")
				default:
					// For text, varchar, jsonb, and other types, use string as-is
					row[i] = value
				}
			} else {
				row[i] = nil
			}
		}

		rows = append(rows, row)
		rowCount++

		// Process batch when full
		if len(rows) >= cfg.BatchSize {
			_, err := tx.CopyFrom(
				ctx,
				pgx.Identifier{cfg.Table},
				columns,
				pgx.CopyFromRows(rows),
			)
			if err != nil {
				return fmt.Errorf("failed to copy batch: %w", err)
			}

			percentage := float64(progress.progress) / float64(progress.total) * 100
			log.Printf("Processed %d rows (%.1f%%)", rowCount, percentage)

			rows = rows[:0]
		}
	}

	// Process any remaining rows
	if len(rows) > 0 {
		_, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{cfg.Table},
			columns,
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy final batch: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Successfully imported %d rows", rowCount)
	return nil
}

// progressReader wraps a reader to track read progress
type progressReader struct {
	reader   io.Reader
	total    int64
	progress int64
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	pr.progress += int64(n)
	return n, err
}
