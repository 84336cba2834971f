package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 1, 3,7 ")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 7}, ids)

	ids, err = parseIDs("")
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = parseIDs("1,x")
	assert.Error(t, err)
}

func TestParseRemap(t *testing.T) {
	m, err := parseRemap("0:3, 1:4")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 3, 1: 4}, m)

	m, err = parseRemap("")
	require.NoError(t, err)
	assert.Nil(t, m)

	for _, bad := range []string{"0", "a:1", "1:b"} {
		_, err := parseRemap(bad)
		assert.Error(t, err, bad)
	}
}

func TestMaskRenderer(t *testing.T) {
	for _, kind := range []string{"union", "index", "semantic"} {
		render, err := maskRenderer(kind)
		require.NoError(t, err, kind)

		img, err := render(nil, 3, 4)
		require.NoError(t, err, kind)
		assert.Equal(t, 4, img.Bounds().Dx())
		assert.Equal(t, 3, img.Bounds().Dy())
	}

	_, err := maskRenderer("outline")
	assert.Error(t, err)
}
