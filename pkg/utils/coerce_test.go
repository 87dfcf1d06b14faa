package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openprocure/tenderisk/pkg/utils"
)

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		def  float64
		want float64
	}{
		{"plain number", "1234.5", 0, 1234.5},
		{"currency symbol", "₹1,200,000", 0, 1200000},
		{"dollar and commas", "$2,500.75", 0, 2500.75},
		{"surrounding whitespace", "  42  ", 0, 42},
		{"empty cell", "", 7, 7},
		{"garbage", "N/A", 7, 7},
		{"negative collapses", "-100", 7, 7},
		{"nan collapses", "NaN", 7, 7},
		{"inf collapses", "Inf", 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, utils.CoerceFloat(tt.raw, tt.def))
		})
	}
}

func TestCoerceCount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		def  int
		want int
	}{
		{"integer", "3", -1, 3},
		{"zero", "0", -1, 0},
		{"float truncates", "3.7", -1, 3},
		{"empty", "", -1, -1},
		{"negative", "-2", -1, -1},
		{"garbage", "many", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, utils.CoerceCount(tt.raw, tt.def))
		})
	}
}

func TestCoerceDuration(t *testing.T) {
	assert.Equal(t, 45, utils.CoerceDuration("45", 30))
	assert.Equal(t, 30, utils.CoerceDuration("", 30))
	assert.Equal(t, 30, utils.CoerceDuration("0", 30))
	assert.Equal(t, 30, utils.CoerceDuration("-5", 30))
}

func TestCoerceDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"iso date", "2024-03-16", time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
		{"slash date", "2024/03/16", time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
		{"day first", "16-03-2024", time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
		{"written month", "16 Mar 2024", time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
		{"empty is missing", "", time.Time{}},
		{"garbage is missing", "someday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := utils.CoerceDate(tt.raw)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestClip(t *testing.T) {
	assert.Equal(t, 0.0, utils.Clip(-5, 0, 100))
	assert.Equal(t, 100.0, utils.Clip(250, 0, 100))
	assert.Equal(t, 50.0, utils.Clip(50, 0, 100))
	assert.Equal(t, 0, utils.ClipInt(-1, 0, 100))
	assert.Equal(t, 100, utils.ClipInt(140, 0, 100))
	assert.Equal(t, 70, utils.ClipInt(70, 0, 100))
}
