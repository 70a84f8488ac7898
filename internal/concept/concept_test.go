package concept

import (
	"errors"
	"testing"
)

func TestValidateForCreate(t *testing.T) {
	tests := []struct {
		name    string
		concept Concept
		wantErr error
	}{
		{
			name: "valid concern",
			concept: Concept{
				ID:          1,
				Type:        TypeSkinConcern,
				Name:        "Acne",
				Description: "Inflamed breakouts",
			},
			wantErr: nil,
		},
		{
			name:    "valid skin type",
			concept: Concept{ID: 2, Type: TypeSkinType, Name: "Oily"},
			wantErr: nil,
		},
		{
			name:    "zero id",
			concept: Concept{ID: 0, Type: TypeSkinConcern, Name: "Acne"},
			wantErr: ErrInvalidID,
		},
		{
			name:    "blank name",
			concept: Concept{ID: 1, Type: TypeSkinConcern, Name: "  "},
			wantErr: ErrEmptyName,
		},
		{
			name:    "hyphen only name",
			concept: Concept{ID: 1, Type: TypeSkinConcern, Name: "-"},
			wantErr: ErrEmptyName,
		},
		{
			name:    "separators only name",
			concept: Concept{ID: 1, Type: TypeSkinConcern, Name: " _ - "},
			wantErr: ErrEmptyName,
		},
		{
			name:    "unknown type",
			concept: Concept{ID: 1, Type: "shopping", Name: "Luxury"},
			wantErr: ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.concept.ValidateForCreate()
			if err != tt.wantErr {
				t.Errorf("ValidateForCreate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCatalog(t *testing.T) {
	tests := []struct {
		name     string
		concepts []Concept
		wantErr  error
	}{
		{
			name: "valid",
			concepts: []Concept{
				{ID: 1, Type: TypeSkinConcern, Name: "Acne"},
				{ID: 2, Type: TypeSkinType, Name: "Acne"},
			},
		},
		{
			name: "duplicate id",
			concepts: []Concept{
				{ID: 1, Type: TypeSkinConcern, Name: "Acne"},
				{ID: 1, Type: TypeSkinConcern, Name: "Pores"},
			},
			wantErr: ErrDuplicateID,
		},
		{
			name: "duplicate name after normalization",
			concepts: []Concept{
				{ID: 1, Type: TypeSkinConcern, Name: "Dark Circles"},
				{ID: 2, Type: TypeSkinConcern, Name: "dark-circles"},
			},
			wantErr: ErrDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateCatalog(tt.concepts); err != tt.wantErr {
				t.Errorf("ValidateCatalog() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Dark Circles", "darkcircles"},
		{"fine-lines_wrinkles", "finelineswrinkles"},
		{"ACNE", "acne"},
		{"Ｅｙｅｂａｇ", "eyebag"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValidType(t *testing.T) {
	for _, typ := range ValidTypes {
		if !IsValidType(typ) {
			t.Errorf("IsValidType(%q) = false", typ)
		}
	}
	if IsValidType("") {
		t.Error("IsValidType(\"\") = true")
	}
}

func TestHasEmbedding(t *testing.T) {
	if (&Concept{}).HasEmbedding() {
		t.Error("empty concept should have no embedding")
	}
	if !(&Concept{Embedding: []float32{1}}).HasEmbedding() {
		t.Error("concept with vector should have embedding")
	}
}

func TestSpecialMappingsCopy(t *testing.T) {
	m := SpecialMappings()
	m["puffiness"] = "changed"
	if got := SpecialMappings()["puffiness"]; got != "eyebag" {
		t.Errorf("SpecialMappings() mutated: puffiness = %q", got)
	}
	if len(m) != len(specialMappings) {
		t.Errorf("copy len = %d", len(m))
	}
	if !errors.Is(ValidateSpecialMappings(nil), ErrSpecialTargetMissing) {
		t.Error("empty catalog should fail validation")
	}
}
