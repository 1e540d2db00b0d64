package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type period struct {
	Name        string `json:"name" validate:"required"`
	Temperature int    `json:"temperature"`
}

func TestEncoder(t *testing.T) {
	enc := NewEncoder()

	bs, err := enc.Marshal(&period{Name: "Today", Temperature: 68})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"Today\",\n  \"temperature\": 68\n}", string(bs))

	bs, err = NewEncoder().WithIndent("").Marshal(&period{Name: "Today", Temperature: 68})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Today","temperature":68}`, string(bs))

	var p period
	require.NoError(t, enc.Unmarshal(bs, &p))
	assert.Equal(t, period{Name: "Today", Temperature: 68}, p)

	err = enc.Unmarshal([]byte(`{"name":"Today","wind":"NW"}`), &p)
	assert.EqualError(t, err, `json: unknown field "wind"`)

	assert.NoError(t, enc.Validate(&p))
	assert.Error(t, enc.Validate(&period{}))
}
