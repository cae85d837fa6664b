package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFriendlyPercentage(t *testing.T) {
	rate := func(f float64) *float64 { return &f }

	tests := []struct {
		name string
		rate *float64
		want string
	}{
		{name: "absent", rate: nil, want: ""},
		{name: "zero", rate: rate(0), want: "0%"},
		{name: "full", rate: rate(1), want: "100%"},
		{name: "rounded down", rate: rate(0.8333), want: "83%"},
		{name: "rounded up", rate: rate(0.875), want: "88%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FriendlyPercentage(tt.rate))
		})
	}
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Okafor, Ada Nneka", FullName("Ada", "Okafor", "Nneka"))
	assert.Equal(t, "Okafor, Ada", FullName("Ada", "Okafor", ""))
}

func TestFormatDate(t *testing.T) {
	date := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "1 Mar 2024 at 10:00 AM", FormatDate(date))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Alice", CleanString("  Alice "))
	assert.Equal(t, "alice", CleanString("  Alice ", true))
}

func TestValidator_Struct(t *testing.T) {
	type login struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	v := NewValidator()

	assert.NoError(t, v.Struct(login{Username: "alice", Password: "pwd"}))

	err := v.Struct(login{}, map[string]string{"password.required": "Enter password"})
	vErr, ok := AsValidationError(err)
	if assert.True(t, ok) {
		msg, ok := vErr.FieldMessage("username")
		assert.True(t, ok)
		assert.Equal(t, "this field is required", msg)

		msg, ok = vErr.FieldMessage("password")
		assert.True(t, ok)
		assert.Equal(t, "Enter password", msg)
	}
}
