package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatioSamplerRotation(t *testing.T) {
	s := newRatioSampler(2, 5)
	var got []bool
	for i := 0; i < 10; i++ {
		got = append(got, s.Allow())
	}
	assert.Equal(t, []bool{true, true, false, false, false, true, true, false, false, false}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/50":    {1, 50},
		" 3 / 4 ": {3, 4},
		"20":      {1, 20},
		"0":       {0, 0},
		"x/2":     {0, 0},
		"":        {0, 0},
	}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		assert.Equal(t, want, [2]int{num, den}, spec)
	}
}
