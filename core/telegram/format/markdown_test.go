package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdown(t *testing.T) {
	v1, err := EscapeMarkdown("star_wars *4* [x]", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, `star\_wars \*4\* \[x]`, v1)

	v2, err := EscapeMarkdown("a.b-c!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, `a\.b\-c\!`, v2)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)

	assert.Equal(t, `\_`, Escape("_"))
}
