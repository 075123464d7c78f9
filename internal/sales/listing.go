package sales

import (
	"sort"
	"strings"
)

type sortKey struct {
	field string
	desc  bool
}

// parseOrder turns a comma-separated "field [asc|desc]" expression into sort
// keys. Only "totalamount" and "date" are recognized, case-insensitively;
// anything else is silently skipped.
func parseOrder(expr string) []sortKey {
	var keys []sortKey
	for _, part := range strings.Split(expr, ",") {
		segments := strings.Fields(strings.TrimSpace(part))
		if len(segments) == 0 {
			continue
		}
		field := strings.ToLower(segments[0])
		if field != "totalamount" && field != "date" {
			continue
		}
		desc := len(segments) > 1 && strings.EqualFold(segments[1], "desc")
		keys = append(keys, sortKey{field: field, desc: desc})
	}
	return keys
}

// applyOrder applies each key as a full stable sort, in expression order.
// Successive stable sorts make the last key the dominant one, with earlier
// keys surviving as tie-breakers.
func applyOrder(sales []*Sale, keys []sortKey) {
	for _, key := range keys {
		k := key
		sort.SliceStable(sales, func(i, j int) bool {
			var less bool
			switch k.field {
			case "totalamount":
				less = sales[i].TotalAmount().LessThan(sales[j].TotalAmount())
			case "date":
				less = sales[i].Date.Before(sales[j].Date)
			}
			if k.desc {
				return !less && !equalOn(k.field, sales[i], sales[j])
			}
			return less
		})
	}
}

func equalOn(field string, a, b *Sale) bool {
	switch field {
	case "totalamount":
		return a.TotalAmount().Equal(b.TotalAmount())
	case "date":
		return a.Date.Equal(b.Date)
	}
	return false
}

// filterSales applies the branch equality filter and the inclusive total
// range filter from the query.
func filterSales(all []*Sale, query ListSalesQuery) []*Sale {
	filtered := make([]*Sale, 0, len(all))
	for _, s := range all {
		if query.Branch != "" && s.Branch != query.Branch {
			continue
		}
		if query.MinTotal != nil && s.TotalAmount().LessThan(*query.MinTotal) {
			continue
		}
		if query.MaxTotal != nil && s.TotalAmount().GreaterThan(*query.MaxTotal) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// pageSales cuts the requested page out of the filtered, sorted set. Pages
// past the end come back empty.
func pageSales(sales []*Sale, page, size int) []*Sale {
	skip := (page - 1) * size
	if skip >= len(sales) {
		return nil
	}
	end := skip + size
	if end > len(sales) {
		end = len(sales)
	}
	return sales[skip:end]
}
