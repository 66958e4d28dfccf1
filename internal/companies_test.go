package internal

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Rentals", "acme-rentals"},
		{"  Fleet & Co.  ", "fleet-co"},
		{"ALL CAPS", "all-caps"},
		{"multi---dash   name", "multi-dash-name"},
		{"café móveis", "caf-m-veis"},
		{"123 Fleet", "123-fleet"},
		{"---", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := slugify(tt.in); got != tt.want {
				t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
