package query

import (
	"context"
	"fmt"
	"io"

	"canadiantracker/internal/price"
	"canadiantracker/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func yesNo(b *bool) string {
	switch {
	case b == nil:
		return "?"
	case *b:
		return "yes"
	default:
		return "no"
	}
}

// RenderHistory renders the price history of `product` as a table, with the
// change from the previous sample of the same sku.
func RenderHistory(ctx context.Context, w io.Writer, s *store.Store, product store.Product) error {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s (%s)", product.Name, product.Code))
	t.AppendHeader(table.Row{"Date", "SKU", "Price", "Change", "Promo"})

	previous := make(map[string]int64)
	err := s.ProductHistory(product.ID, store.DefaultBatchSize).ForEach(ctx, func(entry store.HistoryEntry) error {
		change := ""
		if last, ok := previous[entry.SkuCode]; ok && last != entry.PriceCents {
			delta := entry.PriceCents - last
			sign := "+"
			if delta < 0 {
				sign = "-"
				delta = -delta
			}
			change = sign + price.Format(delta)
		}
		previous[entry.SkuCode] = entry.PriceCents

		promo := ""
		if entry.InPromo {
			promo = "yes"
		}
		t.AppendRow(table.Row{
			entry.Time.Format("2006-01-02 15:04"),
			entry.SkuCode,
			price.Format(entry.PriceCents),
			change,
			promo,
		})
		return nil
	})
	if err != nil {
		return err
	}

	t.Render()
	return nil
}

// RenderProducts renders every product of `cursor` as a table.
func RenderProducts(ctx context.Context, w io.Writer, cursor *store.Cursor[store.Product]) (int, error) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Code", "Name", "Clearance", "Last listed"})

	count := 0
	err := cursor.ForEach(ctx, func(product store.Product) error {
		lastListed := "never"
		if !product.LastListed.IsZero() {
			lastListed = product.LastListed.Format("2006-01-02")
		}
		t.AppendRow(table.Row{product.Code, product.Name, yesNo(product.IsInClearance), lastListed})
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d products", count)})
	t.Render()
	return count, nil
}

// RenderMatches renders search results as a table.
func RenderMatches(w io.Writer, matches []Match) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Code", "Name", "Score"})
	for _, m := range matches {
		t.AppendRow(table.Row{m.Product.Code, m.Product.Name, fmt.Sprintf("%.3f", m.Score)})
	}
	t.Render()
}
