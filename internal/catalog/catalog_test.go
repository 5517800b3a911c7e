package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func TestTrades_Catalog(t *testing.T) {
	assert.Len(t, Categories(), 14)
	assert.Len(t, AllTrades(), 55)
	assert.True(t, IsValidTrade("Plomero"))
	assert.False(t, IsValidTrade("plomero"))

	category, ok := CategoryOf("Gasista")
	require.True(t, ok)
	assert.Equal(t, "Construcción y Mantenimiento", category)

	_, ok = CategoryOf("Astronauta")
	assert.False(t, ok)
}

func TestSearchTrades_CaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"Mecánico de autos", "Mecánico de motos", "Mecánico (general)"}, SearchTrades("MECÁNICO"))
	assert.Len(t, SearchTrades(""), 55)
	assert.Empty(t, SearchTrades("zzz"))
}

func TestRelatedTrades(t *testing.T) {
	assert.Equal(t, []string{"Camionero", "Cadete"}, RelatedTrades("Chofer"))
	assert.Empty(t, RelatedTrades("Abogado"))
	assert.Empty(t, RelatedTrades("Astronauta"))
}

func TestTradesByCategory_ReturnsCopy(t *testing.T) {
	trades := TradesByCategory("Salud")
	require.Len(t, trades, 2)
	trades[0] = "cambiado"

	assert.Equal(t, "Auxiliar de enfermería", TradesByCategory("Salud")[0])
	assert.Empty(t, TradesByCategory("Inexistente"))
}

func TestPopularTrades_AreValid(t *testing.T) {
	for _, trade := range PopularTrades() {
		assert.True(t, IsValidTrade(trade), trade)
	}
}

func TestZones_DeduplicatedAndSorted(t *testing.T) {
	zones := AllZones()
	assert.Len(t, zones, 129)
	assert.Equal(t, "Achiras", zones[0])

	seen := make(map[string]bool)
	for _, z := range zones {
		assert.False(t, seen[z], "duplicate %s", z)
		seen[z] = true
	}

	col := collate.New(language.Spanish)
	for i := 1; i < len(zones); i++ {
		assert.LessOrEqual(t, col.CompareString(zones[i-1], zones[i]), 0, "%s > %s", zones[i-1], zones[i])
	}
}

func TestZonesByType(t *testing.T) {
	assert.Len(t, ZonesByType(ZoneTypeCities), 50)
	assert.Len(t, ZonesByType(ZoneTypeMunicipalities), 87)
	assert.Len(t, ZonesByType("otra"), 129)
}

func TestValidateAndSearchZones(t *testing.T) {
	assert.True(t, ValidateZone("Villa Carlos Paz"))
	assert.False(t, ValidateZone("villa carlos paz"))
	assert.Contains(t, SearchZones("carlos"), "Villa Carlos Paz")

	for _, z := range PopularZones() {
		assert.True(t, ValidateZone(z), z)
	}
}

func TestZoneStats(t *testing.T) {
	stats := Stats()
	assert.Equal(t, 129, stats.Total)
	assert.Equal(t, 50, stats.Cities)
	assert.Equal(t, 87, stats.Municipalities)
}
