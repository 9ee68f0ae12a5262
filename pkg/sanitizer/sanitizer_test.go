package sanitizer

import (
	"reflect"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Seaside Cabin  ",
			want:  "Seaside Cabin",
		},
		{
			name:  "multiple spaces between words",
			input: "Seaside    Cabin",
			want:  "Seaside Cabin",
		},
		{
			name:  "tabs and newlines",
			input: "Seaside\t\nCabin",
			want:  "Seaside Cabin",
		},
		{
			name:  "control characters stripped",
			input: "Seaside\x00Cabin\x07",
			want:  "SeasideCabin",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve special characters and case",
			input: " Café & Spa™ ",
			want:  "Café & Spa™",
		},
		{
			name:  "hebrew characters",
			input: " צימר בגליל ",
			want:  "צימר בגליל",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeName_Idempotent(t *testing.T) {
	input := "  Loft \t above   the bakery "
	once := SanitizeName(input)
	twice := SanitizeName(once)
	if once != twice {
		t.Errorf("SanitizeName is not idempotent: %q vs %q", once, twice)
	}
}

func TestSanitizeDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "line breaks survive",
			input: "Two bedrooms.\nGreat view.",
			want:  "Two bedrooms.\nGreat view.",
		},
		{
			name:  "blanks collapse within a line",
			input: "Two   bedrooms.\tGreat  view.",
			want:  "Two bedrooms. Great view.",
		},
		{
			name:  "control characters stripped",
			input: "Quiet\x08 street",
			want:  "Quiet street",
		},
		{
			name:  "trimmed edges",
			input: "  cozy place  ",
			want:  "cozy place",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeDescription(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeDescription(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeAccountID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trimmed",
			input: "  acct-42  ",
			want:  "acct-42",
		},
		{
			name:  "content untouched",
			input: "Owner_7",
			want:  "Owner_7",
		},
		{
			name:  "control characters stripped",
			input: "acct\x00-42",
			want:  "acct-42",
		},
		{
			name:  "whitespace only becomes empty",
			input: " \t ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeAccountID(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeAccountID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeSlice(t *testing.T) {
	got := SanitizeSlice([]string{" a ", "b", "a", "", "  ", "B"}, SanitizeName)
	want := []string{"a", "b", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SanitizeSlice = %v, want %v", got, want)
	}

	if out := SanitizeSlice(nil, SanitizeName); len(out) != 0 {
		t.Errorf("SanitizeSlice(nil) should be empty, got %v", out)
	}
}

func TestPipeline_Apply(t *testing.T) {
	upper := func(s string) string { return s + "!" }
	p := Pipeline{trim, upper}

	if got := p.Apply("  hey  "); got != "hey!" {
		t.Errorf("Pipeline.Apply = %q, want %q", got, "hey!")
	}

	var empty Pipeline
	if got := empty.Apply("unchanged"); got != "unchanged" {
		t.Errorf("empty pipeline should return input unchanged, got %q", got)
	}
}
