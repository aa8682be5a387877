package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpect_ToEqual(t *testing.T) {
	arr := []any{1.0}

	tests := []struct {
		name   string
		actual any
		want   any
		ok     bool
	}{
		{"equal numbers", 2.0, 2.0, true},
		{"int and float", 2, 2.0, true},
		{"strings", "a", "a", true},
		{"number vs string", 1.0, "1", false},
		{"same array", arr, arr, true},
		{"distinct arrays", []any{1.0}, []any{1.0}, false},
		{"nil", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Expect(tt.actual).ToEqual(tt.want)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestExpect_Message(t *testing.T) {
	err := Expect(map[string]any{"b": 1.0, "a": "x"}).ToEqual(3.0)

	var ae *AssertionError
	assert.ErrorAs(t, err, &ae)
	assert.Equal(t, `{"a":"x","b":1} does not equal 3`, err.Error())
}
