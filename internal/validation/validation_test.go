package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type window struct {
	Start    string `json:"start_time" validate:"required,wallclock"`
	Duration int    `json:"slot_duration_minutes" validate:"min=5,max=120"`
}

func TestStruct_WallClock(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"09:00", true},
		{"23:59", true},
		{"00:00", true},
		{"9:00", false},
		{"24:00", false},
		{"12:60", false},
		{"noon", false},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			err := Struct(window{Start: tc.in, Duration: 30})
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, "start_time", vErr.Field)
		})
	}
}

func TestStruct_UsesJSONFieldNames(t *testing.T) {
	err := Struct(window{Start: "09:00", Duration: 121})
	require.Error(t, err)
	assert.Equal(t, "slot_duration_minutes: must be at most 120", err.Error())
	assert.True(t, IsValidationError(err))
}

func TestErrorf(t *testing.T) {
	err := Errorf("scheduled_at", "must be today or later")
	assert.EqualError(t, err, "scheduled_at: must be today or later")
	assert.True(t, IsValidationError(err))
	assert.False(t, IsValidationError(errors.New("boom")))
}
