package google

import (
	"fmt"
	"strconv"
	"strings"

	"txreport/internal/core"
)

var requiredHeaders = []string{"id", "title", "price", "category", "sold", "dateOfSale"}

// parseRows converts a values matrix into transactions. Columns are located by
// header name so the sheet can order them freely; description and image are
// optional.
func parseRows(values [][]interface{}) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	col := map[string]int{}
	for i, h := range headers {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := col[strings.ToLower(h)]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected sheet header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	get := func(row []string, name string) string {
		i, ok := col[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := make([]core.Transaction, 0, len(values)-1)
	for n, raw := range values[1:] {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		line := n + 2
		id, err := strconv.ParseInt(get(row, "id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id %q", line, get(row, "id"))
		}
		price, err := strconv.ParseFloat(strings.ReplaceAll(get(row, "price"), ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price %q", line, get(row, "price"))
		}
		sold, err := strconv.ParseBool(strings.ToLower(get(row, "sold")))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid sold %q", line, get(row, "sold"))
		}
		date, err := core.ParseSaleDate(get(row, "dateOfSale"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, core.Transaction{
			ID:          id,
			Title:       get(row, "title"),
			Description: get(row, "description"),
			Price:       price,
			Category:    get(row, "category"),
			Image:       get(row, "image"),
			Sold:        sold,
			DateOfSale:  date,
		})
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
