package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		valueType string
		want      interface{}
		wantErr   bool
	}{
		{"text", "Corolla", "TEXT", "Corolla", false},
		{"optional text", "Corolla", "TEXT?", "Corolla", false},
		{"int", "2021", "INT", 2021, false},
		{"bad int", "twenty", "INT", nil, true},
		{"money with decimals", "123.45", "MONEY", int64(12345), false},
		{"money whole", "120", "MONEY", int64(12000), false},
		{"money with thousands separator", "1,250.00", "MONEY", int64(125000), false},
		{"bad money", "abc", "MONEY", nil, true},
		{"bool yes", "Yes", "BOOL", true, false},
		{"bool no", "no", "BOOL", false, false},
		{"iso date", "2025-03-10", "DATE", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{"bad date", "soon", "DATE", nil, true},
		{"unknown type passes through", "raw", "BLOB", "raw", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.value, tt.valueType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseValue(%q, %q) error = %v, wantErr %v", tt.value, tt.valueType, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("parseValue(%q, %q) = %v, want %v", tt.value, tt.valueType, got, tt.want)
			}
		})
	}
}

func TestCanonicalHeader(t *testing.T) {
	aliases := map[string][]string{
		"Plate": {"License Plate", "Registration", "Placa"},
		"Make":  {"Manufacturer", "Brand"},
	}

	tests := []struct {
		header string
		want   string
	}{
		{"Plate", "PLATE"},
		{"plate", "PLATE"},
		{"License Plate", "PLATE"},
		{"placa", "PLATE"},
		{"Brand", "MAKE"},
		{"Color", "COLOR"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := canonicalHeader(tt.header, aliases); got != tt.want {
				t.Errorf("canonicalHeader(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestBuildVehicleData(t *testing.T) {
	config := SheetConfig{
		Columns: map[string]ColumnConfig{
			"Plate":      {Field: "plate", Type: "TEXT"},
			"Make":       {Field: "make", Type: "TEXT?"},
			"Year":       {Field: "year", Type: "INT?"},
			"Daily Rate": {Field: "daily_rate_cents", Type: "MONEY?"},
		},
	}
	defaults := map[string]string{"status": "available"}

	t.Run("builds a vehicle with defaults", func(t *testing.T) {
		values := map[string]string{
			"PLATE":      "abc1d23",
			"MAKE":       "Toyota",
			"YEAR":       "2021",
			"DAILY RATE": "150.00",
		}

		vehicle, err := buildVehicleData(values, config, defaults)
		if err != nil {
			t.Fatalf("buildVehicleData() error = %v", err)
		}

		if vehicle["plate"] != "ABC1D23" {
			t.Errorf("Expected plate to be uppercased, got %v", vehicle["plate"])
		}
		if vehicle["make"] != "Toyota" {
			t.Errorf("make = %v, want Toyota", vehicle["make"])
		}
		if vehicle["year"] != 2021 {
			t.Errorf("year = %v, want 2021", vehicle["year"])
		}
		if vehicle["daily_rate_cents"] != int64(15000) {
			t.Errorf("daily_rate_cents = %v, want 15000", vehicle["daily_rate_cents"])
		}
		if vehicle["status"] != "available" {
			t.Errorf("Expected default status, got %v", vehicle["status"])
		}
	})

	t.Run("requires a plate", func(t *testing.T) {
		values := map[string]string{"MAKE": "Toyota"}
		if _, err := buildVehicleData(values, config, defaults); err == nil {
			t.Error("Expected error for missing plate")
		}
	})

	t.Run("rejects bad cell values", func(t *testing.T) {
		values := map[string]string{"PLATE": "ABC1D23", "YEAR": "last year"}
		if _, err := buildVehicleData(values, config, defaults); err == nil {
			t.Error("Expected error for unparseable year")
		}
	})
}

func TestLoadMappingConfig(t *testing.T) {
	t.Run("loads a valid mapping", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vehicles.yaml")
		content := `
version: 1
defaults:
  status: available
sheets:
  Vehicles:
    aliases:
      Plate: ["License Plate"]
    columns:
      Plate:
        field: plate
        type: TEXT
      Make:
        field: make
        type: TEXT?
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := loadMappingConfig(path)
		if err != nil {
			t.Fatalf("loadMappingConfig() error = %v", err)
		}
		if cfg.Version != 1 {
			t.Errorf("version = %d, want 1", cfg.Version)
		}
		if cfg.Defaults["status"] != "available" {
			t.Errorf("Expected default status, got %v", cfg.Defaults)
		}
		if _, ok := cfg.Sheets["Vehicles"]; !ok {
			t.Error("Expected Vehicles sheet config")
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		content := `
version: 1
sheets:
  Vehicles:
    columns:
      VIN:
        field: vin
        type: TEXT
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := loadMappingConfig(path); err == nil {
			t.Error("Expected error for unknown field")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := loadMappingConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Expected error for missing mapping file")
		}
	})
}
