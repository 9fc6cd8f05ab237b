package triangle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"canadiantracker/internal/ingest"
)

// Category is a node of the retailer's category tree.
type Category struct {
	ID            string
	Name          string
	FullName      string
	Level         int
	Subcategories []Category
}

func toCategories(raw []category, parent string, level int) []Category {
	out := make([]Category, len(raw))
	for i, cat := range raw {
		fullName := cat.Name
		if parent != "" {
			fullName = parent + " > " + cat.Name
		}
		out[i] = Category{
			ID:            cat.ID,
			Name:          cat.Name,
			FullName:      fullName,
			Level:         level,
			Subcategories: toCategories(cat.Subcategories, fullName, level+1),
		}
	}
	slices.SortFunc(out, func(a, b Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Preorder calls `fn` with every category of `tree`, parents before children.
func Preorder(tree []Category, fn func(Category)) {
	for _, cat := range tree {
		fn(cat)
		Preorder(cat.Subcategories, fn)
	}
}

// Categories fetches the category tree, top level categories have a level of 1.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var res categoriesResponse
	err := c.get(ctx, "/v1/category/api/v1/categories?lang=en_CA", &res)
	if err != nil {
		c.tel.ReportBroken(report_client_categories, err)
		return nil, fmt.Errorf("get categories: %w", err)
	}
	return toCategories(res.Categories, "", 1), nil
}

// The search endpoint will not list more than ~10,000 products, so the
// inventory is listed one category at a time. Listing every level would
// visit most products once per level, so by default a single level is listed
// per day, rotating through the levels.
func (c *Client) levelsToList(tree []Category) []int {
	if len(c.levels) > 0 {
		return c.levels
	}
	maxLevel := 0
	Preorder(tree, func(cat Category) {
		maxLevel = max(maxLevel, cat.Level)
	})
	if maxLevel == 0 {
		return nil
	}
	return []int{c.clock.Now().Day()%maxLevel + 1}
}

func (c *Client) searchPage(ctx context.Context, cat Category, page int) (searchResponse, error) {
	endpoint := fmt.Sprintf(
		"/v1/search/search?store=%s&lang=en_CA&x1=ast-id-level-%d&q1=%s&experience=category;count=%d;page=%d",
		url.QueryEscape(c.storeID), cat.Level, url.QueryEscape(cat.ID), pageSize, page,
	)
	var res searchResponse
	err := c.get(ctx, endpoint, &res)
	return res, err
}

// ListProducts lists every product of the categories of the selected
// levels, a product listed by more than one category is only passed to
// `fn` once. Pages that fail to load are reported and skipped.
func (c *Client) ListProducts(ctx context.Context, fn func(ingest.ListingEntry) error) error {
	tree, err := c.Categories(ctx)
	if err != nil {
		return err
	}
	levels := c.levelsToList(tree)
	c.tel.ReportDebug("category levels to list", levels)

	var categories []Category
	Preorder(tree, func(cat Category) {
		if slices.Contains(levels, cat.Level) {
			categories = append(categories, cat)
		}
	})

	seen := make(map[string]struct{})
	for _, cat := range categories {
		c.tel.ReportDebug("listing category", cat.FullName)

		pages := 1
		for page := 1; page <= pages; page++ {
			if c.maxPages > 0 && page > c.maxPages {
				break
			}
			res, err := c.searchPage(ctx, cat, page)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				c.tel.ReportWarning(
					report_client_list_page,
					fmt.Errorf("%s page %d: %w", cat.FullName, page, err),
				)
				continue
			}
			if page == 1 {
				pages = res.Pagination.Total
			}

			for _, product := range res.Products {
				if product.Type != "PRODUCT" {
					c.tel.ReportDebug("skipping search result", product.Type, product.Code)
					continue
				}
				if _, ok := seen[product.Code]; ok {
					continue
				}
				seen[product.Code] = struct{}{}

				clearance := slices.Contains(product.Badges, "CLEARANCE")
				err = fn(ingest.ListingEntry{
					ProductCode:   product.Code,
					Name:          product.Title,
					IsInClearance: &clearance,
					URL:           product.URL,
				})
				if err != nil {
					return err
				}
			}
		}
		c.tel.ReportCount(report_client_listed, int64(len(seen)))
	}
	return nil
}

// ListSkus lists the skus of a product. It returns ErrNoSuchProduct if the
// retailer does not know the product, and no skus for stale products that
// come back without a sku list.
func (c *Client) ListSkus(ctx context.Context, productCode string) ([]ingest.SkuEntry, error) {
	endpoint := fmt.Sprintf(
		"/v1/product/api/v1/product/productFamily/%s?baseStoreId=CTR&lang=en_CA&storeId=%s",
		url.PathEscape(productCode), url.QueryEscape(c.storeID),
	)
	var res productFamilyResponse
	err := c.get(ctx, endpoint, &res)
	var reqErr *requestError
	if errors.As(err, &reqErr) && reqErr.status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchProduct, productCode)
	}
	if err != nil {
		return nil, fmt.Errorf("list skus of %s: %w", productCode, err)
	}

	skus := make([]ingest.SkuEntry, len(res.Skus))
	for i, sku := range res.Skus {
		skus[i] = ingest.SkuEntry{
			Code:          sku.Code,
			FormattedCode: sku.FormattedCode,
		}
	}
	return skus, nil
}
