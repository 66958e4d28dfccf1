package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	CompanyID   int64
	MappingPath string // default "configs/mapping/vehicles.yaml"
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig represents the YAML mapping configuration
type MappingConfig struct {
	Version  int                    `yaml:"version"`
	Defaults map[string]string      `yaml:"defaults"`
	Sheets   map[string]SheetConfig `yaml:"sheets"`
}

type SheetConfig struct {
	Aliases map[string][]string     `yaml:"aliases"`
	Columns map[string]ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Field string `yaml:"field"`
	Type  string `yaml:"type"`
}

// vehicleFields are the columns the importer may write. Everything else
// in a mapping file is rejected up front.
var vehicleFields = map[string]bool{
	"plate":            true,
	"make":             true,
	"model":            true,
	"year":             true,
	"color":            true,
	"category":         true,
	"daily_rate_cents": true,
	"odometer_km":      true,
	"status":           true,
	"notes":            true,
}

// ImportExcel reads a workbook and upserts vehicles keyed on the plate.
// Dry runs go through the whole pipeline inside a transaction that is
// always rolled back, so the summary reflects what a real run would do.
func ImportExcel(ctx context.Context, db *pgxpool.Pool, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}

	if opts.MappingPath == "" {
		opts.MappingPath = "configs/mapping/vehicles.yaml"
	}
	if opts.MaxErrors == 0 {
		opts.MaxErrors = 50
	}

	mapping, err := loadMappingConfig(opts.MappingPath)
	if err != nil {
		return summary, fmt.Errorf("failed to load mapping config: %w", err)
	}

	// xlsx needs random access, so the stream is buffered first
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return summary, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_company_id', $1, true)",
		strconv.FormatInt(opts.CompanyID, 10)); err != nil {
		return summary, fmt.Errorf("failed to set company context: %w", err)
	}

	for _, sheet := range xlFile.Sheets {
		sheetConfig, exists := mapping.Sheets[sheet.Name]
		if !exists {
			continue
		}

		sheetSummary := processSheet(ctx, tx, sheet, sheetConfig, opts, mapping.Defaults)
		summary.Sheets = append(summary.Sheets, sheetSummary)

		summary.Inserted += sheetSummary.Inserted
		summary.Updated += sheetSummary.Updated
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors

		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}

	if !opts.DryRun {
		if err := tx.Commit(ctx); err != nil {
			return summary, fmt.Errorf("failed to commit import: %w", err)
		}
	}

	return summary, nil
}

func loadMappingConfig(path string) (*MappingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config MappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	for sheetName, sheet := range config.Sheets {
		for header, col := range sheet.Columns {
			if !vehicleFields[col.Field] {
				return nil, fmt.Errorf("sheet %q column %q maps to unknown field %q", sheetName, header, col.Field)
			}
		}
	}
	return &config, nil
}

func processSheet(ctx context.Context, tx pgx.Tx, sheet *xlsx.Sheet, config SheetConfig, opts ImportOptions, defaults map[string]string) SheetSummary {
	summary := SheetSummary{Name: sheet.Name}

	headerRow, err := sheet.Row(0)
	if err != nil {
		summary.Errors++
		summary.Samples = append(summary.Samples, RowError{
			Sheet:   sheet.Name,
			Row:     1,
			Message: "Failed to read header row: " + err.Error(),
		})
		return summary
	}

	// Map canonical header names (including aliases) to column indexes
	headerIdx := make(map[string]int)
	colIdx := 0
	for {
		cell := headerRow.GetCell(colIdx)
		if cell == nil {
			break
		}
		headerName := strings.TrimSpace(cell.String())
		if headerName == "" {
			colIdx++
			continue
		}
		canonical := canonicalHeader(headerName, config.Aliases)
		if _, dup := headerIdx[canonical]; !dup {
			headerIdx[canonical] = colIdx
		}
		colIdx++
	}

	rowIdx := 1
	for {
		row, err := sheet.Row(rowIdx)
		if err != nil {
			break
		}

		values, empty := extractRow(row, headerIdx, config)
		if empty {
			summary.Skipped++
			rowIdx++
			continue
		}

		vehicle, err := buildVehicleData(values, config, defaults)
		if err != nil {
			summary.Errors++
			if len(summary.Samples) < 10 {
				summary.Samples = append(summary.Samples, RowError{
					Sheet:   sheet.Name,
					Row:     rowIdx + 1,
					Message: err.Error(),
				})
			}
			rowIdx++
			continue
		}

		updated, err := upsertVehicle(ctx, tx, vehicle, opts.CompanyID)
		if err != nil {
			summary.Errors++
			if len(summary.Samples) < 10 {
				summary.Samples = append(summary.Samples, RowError{
					Sheet:   sheet.Name,
					Row:     rowIdx + 1,
					Message: err.Error(),
				})
			}
			rowIdx++
			continue
		}
		if updated {
			summary.Updated++
		} else {
			summary.Inserted++
		}

		rowIdx++
	}

	return summary
}

func canonicalHeader(header string, aliases map[string][]string) string {
	upper := strings.ToUpper(header)
	for canonical, names := range aliases {
		if strings.EqualFold(canonical, header) {
			return strings.ToUpper(canonical)
		}
		for _, name := range names {
			if strings.EqualFold(name, header) {
				return strings.ToUpper(canonical)
			}
		}
	}
	return upper
}

func extractRow(row *xlsx.Row, headerIdx map[string]int, config SheetConfig) (map[string]string, bool) {
	values := make(map[string]string)
	for header := range config.Columns {
		idx, ok := headerIdx[strings.ToUpper(header)]
		if !ok {
			continue
		}
		cell := row.GetCell(idx)
		if cell == nil {
			continue
		}
		if v := strings.TrimSpace(cell.String()); v != "" {
			values[strings.ToUpper(header)] = v
		}
	}
	return values, len(values) == 0
}

func buildVehicleData(values map[string]string, config SheetConfig, defaults map[string]string) (map[string]interface{}, error) {
	vehicle := make(map[string]interface{})

	for field, value := range defaults {
		if vehicleFields[field] {
			vehicle[field] = value
		}
	}

	for header, columnConfig := range config.Columns {
		value, exists := values[strings.ToUpper(header)]
		if !exists || value == "" {
			continue
		}
		parsed, err := parseValue(value, columnConfig.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %v", header, err)
		}
		vehicle[columnConfig.Field] = parsed
	}

	plate, ok := vehicle["plate"].(string)
	if !ok || strings.TrimSpace(plate) == "" {
		return nil, fmt.Errorf("plate is required")
	}
	vehicle["plate"] = strings.ToUpper(strings.TrimSpace(plate))

	return vehicle, nil
}

func parseValue(value, valueType string) (interface{}, error) {
	valueType = strings.TrimSuffix(valueType, "?")

	switch valueType {
	case "TEXT", "string":
		return value, nil
	case "INT", "int":
		return strconv.Atoi(value)
	case "MONEY", "money":
		// Accepts "123.45" or "123" and stores cents
		f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid money value: %s", value)
		}
		return int64(f*100 + 0.5), nil
	case "BOOL", "bool":
		value = strings.ToLower(value)
		return value == "yes" || value == "y" || value == "true" || value == "1", nil
	case "DATE", "date":
		formats := []string{
			"2006-01-02",
			"01/02/2006",
			"02/01/2006",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, value); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid date format: %s", value)
	default:
		return value, nil
	}
}

// upsertVehicle inserts or updates a vehicle keyed on (company_id,
// plate). Returns true when an existing row was updated.
func upsertVehicle(ctx context.Context, tx pgx.Tx, vehicle map[string]interface{}, companyID int64) (bool, error) {
	fields := []string{"company_id"}
	values := []interface{}{companyID}
	placeholders := []string{"$1"}
	argIndex := 2

	updates := []string{}
	for field, value := range vehicle {
		fields = append(fields, field)
		values = append(values, value)
		placeholders = append(placeholders, fmt.Sprintf("$%d", argIndex))
		if field != "plate" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", field, field))
		}
		argIndex++
	}
	updates = append(updates, "updated_at = now()")

	query := fmt.Sprintf(`
		INSERT INTO vehicles (%s)
		VALUES (%s)
		ON CONFLICT (company_id, plate) DO UPDATE SET %s
		RETURNING (xmax <> 0)
	`, strings.Join(fields, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))

	var updated bool
	if err := tx.QueryRow(ctx, query, values...).Scan(&updated); err != nil {
		return false, err
	}
	return updated, nil
}
