package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"ALL UPPER CASE", "all-upper-case"},
		{"Divani e Poltrone", "divani-e-poltrone"},
		{"Lampade Città", "lampade-citta"},
		{"Perché così?", "perche-cosi"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"  --Tavolo   da   pranzo--  ", "tavolo-da-pranzo"},
		{"Sedia 2.0 (rovere)", "sedia-2-0-rovere"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"sofas", "sofas"},
		{" /sofas/ ", "sofas"},
		{"/category/outdoor-living", "outdoor-living"},
		{"Outdoor Living", "outdoor-living"},
		{"Cucina", "cucina"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("tavolo-da-pranzo"))
	assert.True(t, Valid("x1"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("-leading"))
	assert.False(t, Valid("double--hyphen"))
	assert.False(t, Valid("Upper"))
}
