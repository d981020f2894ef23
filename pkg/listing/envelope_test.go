package listing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestNormalize_BareSequence(t *testing.T) {
	env, err := Normalize[string]([]byte(`["a","b","c"]`))
	require.NoError(t, err)

	assert.Equal(t, 3, env.Count)
	assert.Equal(t, []string{"a", "b", "c"}, env.Results)
	assert.Nil(t, env.Next)
	assert.Nil(t, env.Previous)
	assert.False(t, env.HasMore())
}

func TestNormalize_EnvelopePassthrough(t *testing.T) {
	payload := []byte(`{"count": 40, "next": "https://api.example.com/products/?page=2", "previous": null, "results": [{"id":1,"name":"x"},{"id":2,"name":"y"}]}`)

	env, err := Normalize[item](payload)
	require.NoError(t, err)

	// count is trusted, not recomputed from the page length
	assert.Equal(t, 40, env.Count)
	require.NotNil(t, env.Next)
	assert.Equal(t, "https://api.example.com/products/?page=2", *env.Next)
	assert.Nil(t, env.Previous)
	assert.Equal(t, []item{{ID: 1, Name: "x"}, {ID: 2, Name: "y"}}, env.Results)
	assert.True(t, env.HasMore())
}

func TestNormalize_EdgeCases(t *testing.T) {
	t.Run("empty array", func(t *testing.T) {
		env, err := Normalize[item]([]byte(`[]`))
		require.NoError(t, err)
		assert.Equal(t, 0, env.Count)
		assert.NotNil(t, env.Results)
		assert.Empty(t, env.Results)
	})

	t.Run("null results", func(t *testing.T) {
		env, err := Normalize[item]([]byte(`{"count": 0, "results": null}`))
		require.NoError(t, err)
		assert.Equal(t, 0, env.Count)
		assert.NotNil(t, env.Results)
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		env, err := Normalize[int]([]byte("\n  [1, 2]\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, env.Count)
	})

	t.Run("object without results", func(t *testing.T) {
		_, err := Normalize[item]([]byte(`{"id": 1}`))
		assert.True(t, errors.Is(err, ErrUnsupportedPayload))
	})

	t.Run("scalar payload", func(t *testing.T) {
		_, err := Normalize[item]([]byte(`42`))
		assert.True(t, errors.Is(err, ErrUnsupportedPayload))
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := Normalize[item](nil)
		assert.True(t, errors.Is(err, ErrUnsupportedPayload))
	})

	t.Run("malformed items", func(t *testing.T) {
		_, err := Normalize[item]([]byte(`[{"id": "not-a-number"}]`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode list items")
	})
}

func TestFromSlice(t *testing.T) {
	env := FromSlice[item](nil)
	assert.Equal(t, 0, env.Count)
	assert.NotNil(t, env.Results)

	env = FromSlice([]item{{ID: 7}})
	assert.Equal(t, 1, env.Count)
	assert.False(t, env.HasMore())
}
