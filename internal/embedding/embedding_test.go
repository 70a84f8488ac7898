package embedding

import (
	"errors"
	"reflect"
	"testing"
)

func TestEmbedding_Dimensions(t *testing.T) {
	tests := []struct {
		name     string
		vector   []float32
		expected int
	}{
		{"384 dimensions", make([]float32, 384), 384},
		{"empty vector", []float32{}, 0},
		{"small vector", []float32{1.0, 2.0, 3.0}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := Embedding{Vector: tt.vector}
			if got := emb.Dimensions(); got != tt.expected {
				t.Errorf("Dimensions() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	// 1.0 is 0x3f800000, stored least significant byte first.
	got := Encode([]float32{1})
	want := []byte{0x00, 0x00, 0x80, 0x3f}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode(1) = %x, want %x", got, want)
	}
	if Encode(nil) != nil {
		t.Error("Encode(nil) should be nil")
	}
}

func TestDecode(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	got, err := Decode(Encode(v))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Errorf("Decode() = %v, want %v", got, v)
	}

	if got, err := Decode(nil); err != nil || got != nil {
		t.Errorf("Decode(nil) = (%v, %v)", got, err)
	}
	if _, err := Decode([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidBlob) {
		t.Errorf("Decode(3 bytes) error = %v, want ErrInvalidBlob", err)
	}
}
