package triangle

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type category struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Subcategories []category `json:"subcategories"`
}

type categoriesResponse struct {
	Categories []category `json:"categories"`
}

type searchProduct struct {
	Type   string   `json:"type"`
	Code   string   `json:"code"`
	Title  string   `json:"title"`
	URL    string   `json:"url"`
	Badges []string `json:"badges"`
}

type searchResponse struct {
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
	Products []searchProduct `json:"products"`
}

type familySku struct {
	Code          string `json:"code"`
	FormattedCode string `json:"formattedCode"`
}

type productFamilyResponse struct {
	// nil for some stale products
	Skus []familySku `json:"skus"`
}

type priceRequestSku struct {
	Code              string `json:"code"`
	LowStockThreshold int    `json:"lowStockThreshold"`
}

type priceRequest struct {
	Skus []priceRequestSku `json:"skus"`
}

type priceResponse struct {
	Skus []json.RawMessage `json:"skus"`
}

type priceInfo struct {
	Code         string `json:"code"`
	CurrentPrice *struct {
		Value decimal.Decimal `json:"value"`
	} `json:"currentPrice"`
	PriceValidUntil any `json:"priceValidUntil"`
}
