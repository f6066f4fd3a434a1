package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	buttons := []Button{Data("a", "1"), Data("b", "2"), Data("c", "3")}
	rm := Grid(buttons, 2)
	require.Len(t, rm.InlineKeyboard, 2)
	assert.Len(t, rm.InlineKeyboard[0], 2)
	assert.Equal(t, "3", rm.InlineKeyboard[1][0].Data)
	assert.Len(t, Column(buttons...).InlineKeyboard, 3)
}

func TestRawDataAndLinks(t *testing.T) {
	rm := Rows([]Button{Data("Rate", "rate_12_5"), URL("Open", "https://t.me/x")}, nil)
	require.Len(t, rm.InlineKeyboard, 1)
	assert.Equal(t, "rate_12_5", rm.InlineKeyboard[0][0].Data)
	assert.Equal(t, "https://t.me/x", rm.InlineKeyboard[0][1].URL)
	assert.Empty(t, rm.InlineKeyboard[0][1].Data)

	rm = Append(rm, []Button{Data("Back", "admin_panel")})
	assert.Len(t, rm.InlineKeyboard, 2)
}
