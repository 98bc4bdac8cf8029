package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"Watchtower/internal/model"
)

func TestShorten(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Vodafone", 18, "Vodafone"},
		{"  Vodafone Group  ", 8, "Vodafone..."},
		{"Nestlé Société Anonyme", 6, "Nestlé..."},
		{"日本電信電話株式会社", 4, "日本電信..."},
		{"", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := shorten(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestFormatNum(t *testing.T) {
	assert.Equal(t, "-", formatNum(nil, 2))
	assert.Equal(t, "9.09", formatNum(model.Float(9.0909), 2))
}
