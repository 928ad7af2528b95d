package resource

import (
	"testing"

	"aster/internal/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		rawType string
		rawName string
		want    Identifier
		wantErr bool
	}{
		{
			name:    "plain string resource",
			rawType: "string",
			rawName: "app_name",
			want:    Identifier{Type: "string", Name: "app_name"},
		},
		{
			name:    "dots fold to underscores",
			rawType: "string",
			rawName: "screen.title",
			want:    Identifier{Type: "string", Name: "screen_title"},
		},
		{
			name:    "case is preserved",
			rawType: "drawable",
			rawName: "iconLarge",
			want:    Identifier{Type: "drawable", Name: "iconLarge"},
		},
		{
			name:    "surrounding whitespace trimmed",
			rawType: " string ",
			rawName: " app_name ",
			want:    Identifier{Type: "string", Name: "app_name"},
		},
		{
			name:    "layout type",
			rawType: "layout",
			rawName: "activity_main",
			want:    Identifier{Type: "layout", Name: "activity_main"},
		},
		{
			name:    "string-array folds to array",
			rawType: "string-array",
			rawName: "tabs",
			want:    Identifier{Type: "array", Name: "tabs"},
		},
		{
			name:    "integer-array folds to array",
			rawType: "integer-array",
			rawName: "weights",
			want:    Identifier{Type: "array", Name: "weights"},
		},
		{
			name:    "unknown type",
			rawType: "strng",
			rawName: "app_name",
			wantErr: true,
		},
		{
			name:    "empty name",
			rawType: "string",
			rawName: "   ",
			wantErr: true,
		},
		{
			name:    "invalid character",
			rawType: "string",
			rawName: "app-name",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.rawType, tt.rawName)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Normalize(%q, %q) expected error, got %v", tt.rawType, tt.rawName, got)
				}
				if !errors.IsCode(err, errors.NormalizationError) {
					t.Errorf("expected NORMALIZATION_ERROR, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q, %q) failed: %v", tt.rawType, tt.rawName, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q, %q) = %v, want %v", tt.rawType, tt.rawName, got, tt.want)
			}
		})
	}
}

func TestNormalize_SameRuleBothSides(t *testing.T) {
	// A definition-side name and a usage-side token must resolve to the
	// same identifier, or cross-referencing falls apart.
	def, err := Normalize("string", "promo.banner")
	if err != nil {
		t.Fatalf("definition-side normalize failed: %v", err)
	}
	use, err := Normalize("string", "promo_banner")
	if err != nil {
		t.Fatalf("usage-side normalize failed: %v", err)
	}
	if def != use {
		t.Errorf("definition %v and usage %v should normalize to the same identifier", def, use)
	}
}

func TestIsKnownType(t *testing.T) {
	for _, known := range []string{"string", "layout", "drawable", "plurals", "string-array", "id"} {
		if !IsKnownType(known) {
			t.Errorf("IsKnownType(%q) = false, want true", known)
		}
	}
	for _, unknown := range []string{"", "strings", "Layout", "values"} {
		if IsKnownType(unknown) {
			t.Errorf("IsKnownType(%q) = true, want false", unknown)
		}
	}
}

func TestIdentifierString(t *testing.T) {
	id := Identifier{Type: "string", Name: "app_name"}
	if got := id.String(); got != "string/app_name" {
		t.Errorf("String() = %q, want %q", got, "string/app_name")
	}
}

func TestIdentifierLess(t *testing.T) {
	a := Identifier{Type: "drawable", Name: "icon"}
	b := Identifier{Type: "string", Name: "app_name"}
	c := Identifier{Type: "string", Name: "zebra"}

	if !a.Less(b) {
		t.Error("drawable/* should sort before string/*")
	}
	if !b.Less(c) {
		t.Error("string/app_name should sort before string/zebra")
	}
	if c.Less(b) {
		t.Error("ordering should not be symmetric")
	}
}
