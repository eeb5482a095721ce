package facematch

import "testing"

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Honza", "Honza"},
		{"Jiří", "Jiri"},
		{"café", "cafe"},
		{"Nguyễn Văn An", "Nguyen Van An"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Alice", "Alice"},
		{"trim", "  Alice  ", "Alice"},
		{"collapse", "Jan \t  Novák", "Jan Novák"},
		{"decomposed", "Nova\u0301k", "Nov\u00e1k"},
		{"only spaces", "   ", ""},
		{"empty", "", ""},
		{"case kept", "JOHN doe", "JOHN doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanonicalName(tt.input)
			if result != tt.expected {
				t.Errorf("CanonicalName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNameKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jan Novák", "jan novak"},
		{"jan-novak", "jan novak"},
		{"  JOHN   DOE ", "john doe"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NameKey(tt.input)
			if result != tt.expected {
				t.Errorf("NameKey(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
