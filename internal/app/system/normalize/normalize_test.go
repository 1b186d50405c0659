package normalize

import "testing"

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) string
		input string
		want  string
	}{
		{"email lowercased", Email, "  Sam.Doe@Example.ORG ", "sam.doe@example.org"},
		{"email blank", Email, "   ", ""},
		{"name trimmed", Name, "  Helping Hands  ", "Helping Hands"},
		{"name inner spaces collapsed", Name, "Green   Food\tBank", "Green Food Bank"},
		{"name keeps case", Name, "CITY works", "CITY works"},
		{"role lowercased", Role, "NGO", "ngo"},
		{"role multi-word", Role, "  Homeless   Person ", "homeless person"},
		{"role empty", Role, "", ""},
		{"query trimmed", QueryParam, "  sunny ", "sunny"},
		{"query keeps case", QueryParam, "Sunny Shelter", "Sunny Shelter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
