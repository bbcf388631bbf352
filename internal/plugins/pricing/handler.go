package pricing

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// catalogResponse is the public view of a Catalog.
type catalogResponse struct {
	Currency           string               `json:"currency"`
	Items              []AdditionalItem     `json:"items"`
	Intervals          []TimeIntervalOption `json:"intervals"`
	StudentPrice       decimal.Decimal      `json:"studentPrice"`
	DiscountCardAmount decimal.Decimal      `json:"discountCardAmount"`
	TableTennisRate    decimal.Decimal      `json:"tableTennisRate"`
}

// Handler serves the price lists.
type Handler struct {
	catalog *Catalog
}

// NewHandler creates a new pricing Handler.
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// GetCatalog returns items, intervals and fixed prices.
// GET /api/v1/catalog
func (h *Handler) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, catalogResponse{
		Currency:           CurrencySymbol,
		Items:              h.catalog.Items(),
		Intervals:          h.catalog.Intervals(),
		StudentPrice:       h.catalog.StudentPrice,
		DiscountCardAmount: h.catalog.DiscountCardAmount,
		TableTennisRate:    h.catalog.TableTennisRate,
	})
}

// RegisterRoutes sets up the catalog route on the API group.
func RegisterRoutes(api *echo.Group, h *Handler) {
	api.GET("/catalog", h.GetCatalog)
}
