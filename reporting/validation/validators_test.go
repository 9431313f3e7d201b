package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox(t *testing.T) {
	assert.NoError(t, Box(10, 0, 10, 0))
	assert.NoError(t, Box(90, -90, 180, -180))

	err := Box(0, 0, 5, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "max_lat must be greater than min_lat; max_lon must be greater than min_lon", err.Error())

	var ordering *OrderingError
	assert.ErrorAs(t, err, &ordering)

	err = Box(91, 0, 10, 0)
	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "max_lat", rangeErr.Field)
}

func TestRing(t *testing.T) {
	assert.NoError(t, Ring(0, 0, 0))
	assert.NoError(t, Ring(-90, 180, 1000))
	assert.NoError(t, Ring(90, -180, 0))

	err := Ring(-90.5, 180.5, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude must be between -90 and 90, got -90.5")
	assert.Contains(t, err.Error(), "longitude must be between -180 and 180, got 180.5")
	assert.Contains(t, err.Error(), "radius must be greater than or equal to 0, got -1")
}

func TestDecayRate(t *testing.T) {
	assert.NoError(t, DecayRate(0))
	assert.NoError(t, DecayRate(10))
	assert.ErrorIs(t, DecayRate(10.01), ErrInvalid)
	assert.ErrorIs(t, DecayRate(-0.1), ErrInvalid)
}

func TestCron(t *testing.T) {
	for _, expr := range []string{"* * * * *", "0 0 * * *", "*/5 * * * *", "0 1 * * *", "*/15 0-6 1,15 * 1-5"} {
		assert.NoError(t, Cron(expr), expr)
	}
	for _, expr := range []string{"", "not a cron", "* * * *", "* * * * * *", "0 1 * * MON", "@daily"} {
		assert.ErrorIs(t, Cron(expr), ErrInvalid, expr)
	}
}

func TestSameType(t *testing.T) {
	assert.NoError(t, SameType(nil))
	assert.NoError(t, SameType([]string{"ring"}))
	assert.NoError(t, SameType([]string{"box", "box", "box"}))

	err := SameType([]string{"ring", "box", "ring"})
	var mixed *MixedTypeError
	require.ErrorAs(t, err, &mixed)
	assert.Equal(t, []string{"box", "ring"}, mixed.Types)
}

func TestJoin(t *testing.T) {
	assert.NoError(t, Join())
	assert.NoError(t, Join(nil, nil))

	single := &RequiredError{Field: "name"}
	assert.Same(t, single, Join(nil, single))

	err := Join(single, &RequiredError{Field: "peril"})
	assert.Equal(t, "name is required; peril is required", err.Error())
	assert.ErrorIs(t, err, ErrInvalid)
	assert.False(t, errors.Is(err, errors.New("other")))
}

type testRequest struct {
	Name     string   `json:"name" validate:"required,max=5"`
	Count    int      `json:"count" validate:"gte=1"`
	Cron     *string  `json:"cron" validate:"omitempty,cron"`
	Items    []uint   `json:"items" validate:"required,min=1"`
	Internal string   `validate:"omitempty,max=1"`
	Ratio    *float64 `json:"ratio" validate:"omitempty,lte=1"`
}

func TestStruct(t *testing.T) {
	cron := "0 1 * * *"
	ratio := 0.5
	assert.NoError(t, Struct(testRequest{Name: "abc", Count: 1, Cron: &cron, Items: []uint{1}, Ratio: &ratio}))

	badCron := "daily"
	badRatio := 2.0
	err := Struct(testRequest{Name: "abcdef", Count: 0, Cron: &badCron, Items: []uint{}, Internal: "xx", Ratio: &badRatio})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	msg := err.Error()
	assert.Contains(t, msg, "invalid name: must be at most 5 characters")
	assert.Contains(t, msg, "count must be greater than or equal to 1, got 0")
	assert.Contains(t, msg, "invalid cron 'daily'")
	assert.Contains(t, msg, "invalid items: must be at least 1 items")
	assert.Contains(t, msg, "invalid Internal: must be at most 1 characters")
	assert.Contains(t, msg, "ratio must be less than or equal to 1, got 2")

	err = Struct(testRequest{Count: 1, Items: []uint{1}})
	var required *RequiredError
	require.ErrorAs(t, err, &required)
	assert.Equal(t, "name", required.Field)
}
