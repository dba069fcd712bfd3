package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronField(t *testing.T) {
	tests := []struct {
		field string
		want  []int
	}{
		{"5", []int{5}},
		{"1-5", []int{1, 2, 3, 4, 5}},
		{"*/15", []int{0, 15, 30, 45}},
		{"0-30/10", []int{0, 10, 20, 30}},
		{"0,15,30,45", []int{0, 15, 30, 45}},
		{"1-5,10,20-25/2", []int{1, 2, 3, 4, 5, 10, 20, 22, 24}},
		{"5,5,5", []int{5}},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, err := ParseCronField(tt.field, 0, 59)
			require.NoError(t, err)
			assert.False(t, f.Any)
			assert.Equal(t, tt.want, f.Values)
		})
	}
}

func TestParseCronFieldAny(t *testing.T) {
	f, err := ParseCronField("*", 0, 59)
	require.NoError(t, err)
	assert.True(t, f.Any)
	assert.True(t, f.Contains(0))
	assert.True(t, f.Contains(59))
	assert.Equal(t, 17, f.Next(17))
}

func TestParseCronFieldInvalid(t *testing.T) {
	for _, field := range []string{"60", "-1", "abc", "5-3", "*/0", "1-70", "1/x"} {
		_, err := ParseCronField(field, 0, 59)
		assert.Error(t, err, "field %q", field)
	}
}

func TestCronFieldNext(t *testing.T) {
	f, err := ParseCronField("0,15,30,45", 0, 59)
	require.NoError(t, err)

	for val, want := range map[int]int{0: 0, 1: 15, 15: 15, 16: 30, 45: 45, 46: -1} {
		assert.Equal(t, want, f.Next(val), "Next(%d)", val)
	}
	assert.Equal(t, 0, f.First())
}
