package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontMatter(t *testing.T) {
	text := "---\ntitle: Trip\npublish:\n  strip_front_matter: true\n---\nBody\n---\nnot front matter\n"

	fm, body, err := SplitFrontMatter(text)
	require.NoError(t, err)
	assert.True(t, fm.Present)
	assert.Equal(t, "---\ntitle: Trip\npublish:\n  strip_front_matter: true\n---\n", fm.Block)
	assert.Equal(t, "Body\n---\nnot front matter\n", body)
	require.NotNil(t, fm.Overrides.StripFrontMatter)
	assert.True(t, *fm.Overrides.StripFrontMatter)
	assert.Nil(t, fm.Overrides.ReplaceOriginal)

	opts := fm.Overrides.Apply(Options{ReplaceOriginal: true})
	assert.True(t, opts.StripFrontMatter)
	assert.True(t, opts.ReplaceOriginal)
}

func TestSplitFrontMatterVariants(t *testing.T) {
	fm, body, err := SplitFrontMatter("no front matter\n---\n")
	require.NoError(t, err)
	assert.False(t, fm.Present)
	assert.Equal(t, "no front matter\n---\n", body)

	fm, body, err = SplitFrontMatter("---\r\na: 1\r\n---\r\ntext")
	require.NoError(t, err)
	assert.True(t, fm.Present)
	assert.Equal(t, "text", body)

	fm, body, err = SplitFrontMatter("---\n---\ntext")
	require.NoError(t, err)
	assert.True(t, fm.Present)
	assert.Equal(t, "text", body)

	fm, body, err = SplitFrontMatter("---\n: : bad\n\t- x\n---\ntext")
	assert.Error(t, err)
	assert.True(t, fm.Present)
	assert.Equal(t, "text", body)
}

func TestStripFrontMatterOnlyLeading(t *testing.T) {
	assert.Equal(t, "body", StripFrontMatter("---\nx: 1\n---\nbody"))
	assert.Equal(t, "a\n---\nx: 1\n---\n", StripFrontMatter("a\n---\nx: 1\n---\n"))
	assert.Equal(t, "", StripFrontMatter("---\nx: 1\n---"))
}
