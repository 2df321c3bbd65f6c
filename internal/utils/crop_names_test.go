package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCropName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Maize", "Maize"},
		{"  maize ", "Maize"},
		{"MAIZE", "Maize"},
		{"corn", "Maize"},
		{"Peanuts", "Groundnut"},
		{"black-eyed pea", "Cowpea"},
		{"Banana - Green", "Banana"},
		{"kale", "Kale"},
		{"sweet   potato", "Sweet Potato"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCropName(tt.in))
		})
	}
}
