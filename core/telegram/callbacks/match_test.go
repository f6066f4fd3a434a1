package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type hit struct {
	route string
	args  []int64
	flag  bool
}

func sampleList(got *hit) List {
	return List{
		OptionalInt("admin_manage_admins", func(_ tele.Context, n int64, ok bool) error {
			*got = hit{route: "admins", args: []int64{n}, flag: ok}
			return nil
		}),
		IntPair("rate_", func(_ tele.Context, a, b int64) error {
			*got = hit{route: "rate", args: []int64{a, b}}
			return nil
		}),
		Int("manage_admin_", func(_ tele.Context, n int64) error {
			*got = hit{route: "manage_admin", args: []int64{n}}
			return nil
		}),
		Int("delete_cat_", func(_ tele.Context, n int64) error {
			*got = hit{route: "delete_cat", args: []int64{n}}
			return nil
		}),
		Int("cat_", func(_ tele.Context, n int64) error {
			*got = hit{route: "cat", args: []int64{n}}
			return nil
		}),
		IntOrNone("set_movie_category_", func(_ tele.Context, n int64, none bool) error {
			*got = hit{route: "set_category", args: []int64{n}, flag: none}
			return nil
		}),
	}
}

func TestListResolve(t *testing.T) {
	cases := []struct {
		data string
		want hit
	}{
		{"rate_12_5", hit{route: "rate", args: []int64{12, 5}}},
		{"manage_admin_99", hit{route: "manage_admin", args: []int64{99}}},
		{"admin_manage_admins", hit{route: "admins", args: []int64{0}, flag: false}},
		{"admin_manage_admins_2", hit{route: "admins", args: []int64{2}, flag: true}},
		{"delete_cat_3", hit{route: "delete_cat", args: []int64{3}}},
		{"cat_3", hit{route: "cat", args: []int64{3}}},
		{"set_movie_category_none", hit{route: "set_category", args: []int64{0}, flag: true}},
		{"set_movie_category_8", hit{route: "set_category", args: []int64{8}}},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			var got hit
			_, bound, ok := sampleList(&got).Resolve(tc.data)
			require.True(t, ok)
			require.NoError(t, bound(nil))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestListRejectsMalformed(t *testing.T) {
	var got hit
	list := sampleList(&got)
	for _, data := range []string{
		"rate_12",
		"rate_12_",
		"rate_-1_5",
		"rate_12_5_1",
		"manage_admin_",
		"manage_admin_1a",
		"admin_manage_admins_",
		"admin_manage_adminsX",
		"set_movie_category_",
		"cat_ 3",
		"",
	} {
		_, _, ok := list.Resolve(data)
		assert.False(t, ok, data)
	}
}

func TestListHasNoAmbiguities(t *testing.T) {
	var got hit
	assert.Empty(t, sampleList(&got).Ambiguities())
}

func TestAmbiguitiesDetectsOverlap(t *testing.T) {
	noop := func(tele.Context, int64) error { return nil }
	list := List{Int("item_", noop), Int("item_", noop)}
	assert.Len(t, list.Ambiguities(), 2)
}

func TestData(t *testing.T) {
	assert.Equal(t, "rate_1_2", Data(&tele.Callback{Data: "rate_1_2"}))
	assert.Equal(t, "check", Data(&tele.Callback{Data: "\fcheck"}))
	assert.Equal(t, "", Data(nil))
}
