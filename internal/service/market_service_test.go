package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualGoodsCatalog(t *testing.T) {
	catalog := AllVirtualGoods()
	require.Len(t, catalog, 20)

	seen := make(map[string]bool)
	for _, g := range catalog {
		assert.False(t, seen[g.ID], "duplicate good id %s", g.ID)
		seen[g.ID] = true
		assert.NotEmpty(t, g.Name)
		assert.Greater(t, g.Price, 0)
	}

	// One spot check per section of the catalog.
	for _, id := range []string{
		"vg_fruits", "vg_report_category", "vg_theme_ocean",
		"vg_ai_advisor", "vg_discount_shopping",
	} {
		assert.NotNil(t, VirtualGoodByID(id), "missing good %s", id)
	}
}

func TestVirtualGoodByID(t *testing.T) {
	good := VirtualGoodByID("vg_owl")
	require.NotNil(t, good)
	assert.Equal(t, 600, good.Price)

	assert.Nil(t, VirtualGoodByID("vg_unknown"))
}
