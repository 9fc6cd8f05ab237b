package triangle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"canadiantracker/internal/ingest"
)

// MaxBatchSize is the number of skus GetPrices prices per request.
func (c *Client) MaxBatchSize() int {
	return c.priceBatchSize
}

// GetPrices fetches the current price of `skuCodes`.
//
// Retired skus make the retailer reject a whole batch with a 400, when that
// happens the skus of the batch are priced one at a time and the ones that
// are rejected again are skipped.
func (c *Client) GetPrices(ctx context.Context, skuCodes []string) ([]ingest.PriceObservation, error) {
	var out []ingest.PriceObservation
	for start := 0; start < len(skuCodes); start += c.priceBatchSize {
		end := min(start+c.priceBatchSize, len(skuCodes))
		batch, err := c.pricesWithFallback(ctx, skuCodes[start:end])
		if err != nil {
			return out, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func isBadRequest(err error) bool {
	var reqErr *requestError
	return errors.As(err, &reqErr) && reqErr.status == http.StatusBadRequest
}

func (c *Client) pricesWithFallback(ctx context.Context, skuCodes []string) ([]ingest.PriceObservation, error) {
	observations, err := c.prices(ctx, skuCodes)
	if !isBadRequest(err) || len(skuCodes) == 1 {
		return observations, err
	}

	c.tel.ReportDebug("pricing rejected batch one sku at a time", len(skuCodes))
	var out []ingest.PriceObservation
	for _, code := range skuCodes {
		single, err := c.prices(ctx, []string{code})
		if isBadRequest(err) {
			c.tel.ReportWarning(report_client_prices, fmt.Errorf("sku %s: %w", code, err))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, single...)
	}
	return out, nil
}

func (c *Client) prices(ctx context.Context, skuCodes []string) ([]ingest.PriceObservation, error) {
	body := priceRequest{Skus: make([]priceRequestSku, len(skuCodes))}
	for i, code := range skuCodes {
		body.Skus[i] = priceRequestSku{Code: code}
	}

	res, err := c.request(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(fmt.Sprintf("/v1/product/api/v1/product/sku/PriceAvailability/?lang=en_CA&storeId=%s", c.storeID))
	if err != nil {
		return nil, fmt.Errorf("price %d skus: %w", len(skuCodes), err)
	}
	if res.IsError() {
		return nil, &requestError{status: res.StatusCode(), body: res.String()}
	}

	var parsed priceResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}
	c.tel.ReportDebug("received prices", len(parsed.Skus))

	observations := make([]ingest.PriceObservation, 0, len(parsed.Skus))
	for _, raw := range parsed.Skus {
		observation, err := toObservation(raw)
		if err != nil {
			c.tel.ReportWarning(report_client_prices, err)
			continue
		}
		observations = append(observations, observation)
	}
	return observations, nil
}

func toObservation(raw json.RawMessage) (ingest.PriceObservation, error) {
	var info priceInfo
	err := json.Unmarshal(raw, &info)
	if err != nil {
		return ingest.PriceObservation{}, fmt.Errorf("decode price info: %w", err)
	}

	var payload bytes.Buffer
	err = json.Compact(&payload, raw)
	if err != nil {
		return ingest.PriceObservation{}, fmt.Errorf("compact price info: %w", err)
	}

	observation := ingest.PriceObservation{
		SkuCode:    info.Code,
		InPromo:    info.PriceValidUntil != nil,
		RawPayload: payload.String(),
	}
	if info.CurrentPrice != nil {
		value := info.CurrentPrice.Value
		observation.Price = &value
	}
	return observation, nil
}
