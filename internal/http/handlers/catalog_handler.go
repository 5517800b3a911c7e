package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/conectacordoba/marketplace-backend/internal/catalog"
	"github.com/conectacordoba/marketplace-backend/internal/interface/http/response"
)

// CatalogHandler отдаёт справочники специальностей (/api/oficios) и зон (/api/zonas).
type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// ListTrades GET /api/oficios?search=&categoria=
func (h *CatalogHandler) ListTrades(c *gin.Context) {
	var trades []string
	switch {
	case c.Query("search") != "":
		trades = catalog.SearchTrades(c.Query("search"))
	case c.Query("categoria") != "":
		trades = catalog.TradesByCategory(c.Query("categoria"))
	default:
		trades = catalog.AllTrades()
	}
	response.Success(c, gin.H{"trades": trades, "total": len(trades)})
}

// Categories GET /api/oficios/categorias
func (h *CatalogHandler) Categories(c *gin.Context) {
	response.Success(c, catalog.Categories())
}

// PopularTrades GET /api/oficios/populares
func (h *CatalogHandler) PopularTrades(c *gin.Context) {
	response.Success(c, catalog.PopularTrades())
}

// RelatedTrades GET /api/oficios/:oficio/relacionados
func (h *CatalogHandler) RelatedTrades(c *gin.Context) {
	trade := c.Param("oficio")
	category, ok := catalog.CategoryOf(trade)
	if !ok {
		response.NotFound(c, "oficio no encontrado en el catálogo")
		return
	}
	response.Success(c, gin.H{
		"trade":    trade,
		"category": category,
		"related":  catalog.RelatedTrades(trade),
	})
}

// ListZones GET /api/zonas?search=&tipo=
func (h *CatalogHandler) ListZones(c *gin.Context) {
	var zones []string
	switch {
	case c.Query("search") != "":
		zones = catalog.SearchZones(c.Query("search"))
	case c.Query("tipo") != "":
		zones = catalog.ZonesByType(c.Query("tipo"))
	default:
		zones = catalog.AllZones()
	}
	response.Success(c, gin.H{"zones": zones, "total": len(zones)})
}

// ValidateZone GET /api/zonas/validate/:zona
func (h *CatalogHandler) ValidateZone(c *gin.Context) {
	zone := c.Param("zona")
	response.Success(c, gin.H{"zone": zone, "valid": catalog.ValidateZone(zone)})
}

// PopularZones GET /api/zonas/populares
func (h *CatalogHandler) PopularZones(c *gin.Context) {
	response.Success(c, catalog.PopularZones())
}

// ZoneStats GET /api/zonas/estadisticas
func (h *CatalogHandler) ZoneStats(c *gin.Context) {
	response.Success(c, catalog.Stats())
}
