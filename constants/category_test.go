package constants_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/expensebot/mailledger/constants"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		mapped bool
	}{
		{"Food", "Food", true},
		{"food", "Food", true},
		{"groceries", "Food", true},
		{"transportation", "Transport", true},
		{"GAS", "Transport", true},
		{"hotel", "Travel", true},
		{"Pet Care", "Pet Care", false}, // open set: unknown labels pass through
		{"  streaming  ", "Entertainment", true},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := constants.Canonicalize(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.Equal(t, tc.mapped, ok, "input %q", tc.in)
	}
}

func TestAsStringSlice(t *testing.T) {
	cats := constants.AsStringSlice()
	assert.Contains(t, cats, "Food")
	assert.Contains(t, cats, "Other")
	assert.Len(t, cats, 8)
}

func TestIsImageMIME(t *testing.T) {
	assert.True(t, constants.IsImageMIME("image/png"))
	assert.True(t, constants.IsImageMIME("image/jpeg; name=\"a.jpg\""))
	assert.False(t, constants.IsImageMIME("application/pdf"))
	assert.False(t, constants.IsImageMIME(""))
}

func TestExtForMIME(t *testing.T) {
	assert.Equal(t, "jpg", constants.ExtForMIME("image/jpeg"))
	assert.Equal(t, "tif", constants.ExtForMIME("image/tiff"))
	assert.Equal(t, "png", constants.ExtForMIME("application/octet-stream"))
}
