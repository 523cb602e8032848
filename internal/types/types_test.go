package types

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlop3z/ercat/internal/alerr"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		Boolean, Bytes, Date, Datetime, Float, Int, Interval, Password, String, Time,
	}, Names())
}

func TestIsFinal(t *testing.T) {
	assert.True(t, IsFinal(String))
	assert.True(t, IsFinal(Datetime))
	assert.False(t, IsFinal("Person"))
	assert.False(t, IsFinal("string"))
}

func TestLookup(t *testing.T) {
	td, err := Lookup(Int)
	require.NoError(t, err)
	assert.True(t, td.Numeric)
	assert.False(t, td.Sizable)

	_, err = Lookup("Strng")
	require.Error(t, err)
	assert.True(t, alerr.Is(err, alerr.ErrUnknownType))
	e, _ := alerr.As(err)
	assert.Equal(t, []string{"did you mean 'String'?"}, e.Helps())
}

func TestSizableAndNumeric(t *testing.T) {
	for _, name := range []string{String, Password, Bytes} {
		assert.True(t, Get(name).Sizable, name)
	}
	for _, name := range []string{Int, Float} {
		assert.True(t, Get(name).Numeric, name)
	}
	assert.False(t, Get(Boolean).Sizable)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		typ   string
		value any
		want  bool
	}{
		{String, "hello", true},
		{String, 1, false},
		{Int, 42, true},
		{Int, uint8(3), true},
		{Int, "17", true},
		{Int, "notanint", false},
		{Int, 1.5, false},
		{Float, 0.5, true},
		{Float, 3, true},
		{Float, "2.5", true},
		{Float, "MorF", false},
		{Boolean, true, true},
		{Boolean, 0, false},
		{Boolean, "true", false},
		{Date, "1977-06-07", true},
		{Date, "XXX", false},
		{Date, time.Now(), true},
		{Time, "00:00", true},
		{Time, "midi", false},
		{Datetime, "2229-01-31 00:00", true},
		{Datetime, "2229-01-31 minuit", false},
		{Interval, 3 * time.Second, true},
		{Interval, "90m", true},
		{Interval, "soon", false},
		{Password, []byte("secret"), true},
		{Password, "secret", true},
		{Password, 12, false},
		{Bytes, []byte{1}, true},
		{Bytes, bytes.NewReader(nil), true},
		{Bytes, "text", false},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			assert.Equal(t, tt.want, Get(tt.typ).Check(tt.value), "%s(%v)", tt.typ, tt.value)
		})
	}
}

func TestToFloat(t *testing.T) {
	f, ok := ToFloat(int64(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	f, ok = ToFloat(uint(2))
	assert.True(t, ok)
	assert.Equal(t, 2.0, f)

	_, ok = ToFloat("7")
	assert.False(t, ok)
}
