package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

var csvHeader = []string{
	"Category", "Item",
	"Cash Qty", "Cash Revenue",
	"Card Qty", "Card Revenue",
	"Total Qty", "Total Revenue",
}

// cell is one method's quantity and revenue in a CSV row.
type cell struct {
	qty     int
	revenue decimal.Decimal
}

// row is a CSV line before formatting.
type row struct {
	category, item string
	cash, card     cell
}

func (r row) record() []string {
	return []string{
		r.category, r.item,
		strconv.Itoa(r.cash.qty), money(r.cash.revenue),
		strconv.Itoa(r.card.qty), money(r.card.revenue),
		strconv.Itoa(r.cash.qty + r.card.qty), money(r.cash.revenue.Add(r.card.revenue)),
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// WriteCSV renders r as a flat table: court revenue, equipment and
// refreshment groups separated by blank rows, then summary rows.
func WriteCSV(w io.Writer, r *DailyReport) error {
	cw := csv.NewWriter(w)
	blank := make([]string, len(csvHeader))

	records := [][]string{csvHeader}
	for _, rw := range rateRows(r) {
		records = append(records, rw.record())
	}
	records = append(records, blank)
	for _, rw := range itemRows("Equipment", r.Cash.Equipment, r.Card.Equipment) {
		records = append(records, rw.record())
	}
	records = append(records, blank)
	for _, rw := range itemRows("Refreshments", r.Cash.Refreshments, r.Card.Refreshments) {
		records = append(records, rw.record())
	}
	records = append(records, blank)

	cash := cell{qty: r.Cash.Sessions, revenue: r.Cash.Revenue}
	card := cell{qty: r.Card.Sessions, revenue: r.Card.Revenue}
	none := cell{revenue: decimal.Zero}
	records = append(records,
		row{category: "Summary", item: "Cash Total", cash: cash, card: none}.record(),
		row{category: "Summary", item: "Card Total", cash: none, card: card}.record(),
		row{category: "Summary", item: "Grand Total", cash: cash, card: card}.record(),
	)

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("writing report csv: %w", err)
	}
	return nil
}

// rateRows merges both methods' rate lines, ordered by combined revenue
// per session.
func rateRows(r *DailyReport) []row {
	index := make(map[RateKey]int)
	var rows []row
	merge := func(lines []RateLine, cash bool) {
		for _, l := range lines {
			i, ok := index[l.RateKey]
			if !ok {
				i = len(rows)
				index[l.RateKey] = i
				rows = append(rows, row{
					category: "Court Revenue",
					item:     l.Label,
					cash:     cell{revenue: decimal.Zero},
					card:     cell{revenue: decimal.Zero},
				})
			}
			c := cell{qty: l.Count, revenue: l.Revenue}
			if cash {
				rows[i].cash = c
			} else {
				rows[i].card = c
			}
		}
	}
	merge(r.Cash.Rates, true)
	merge(r.Card.Rates, false)

	sort.SliceStable(rows, func(i, j int) bool {
		return perSessionOf(rows[i]).GreaterThan(perSessionOf(rows[j]))
	})
	return rows
}

func perSessionOf(r row) decimal.Decimal {
	n := r.cash.qty + r.card.qty
	if n == 0 {
		return decimal.Zero
	}
	return r.cash.revenue.Add(r.card.revenue).Div(decimal.NewFromInt(int64(n)))
}

// itemRows merges both methods' item lines in first-seen order.
func itemRows(category string, cash, card []ItemLine) []row {
	index := make(map[string]int)
	var rows []row
	merge := func(lines []ItemLine, isCash bool) {
		for _, l := range lines {
			i, ok := index[l.ItemID]
			if !ok {
				i = len(rows)
				index[l.ItemID] = i
				rows = append(rows, row{
					category: category,
					item:     l.Name,
					cash:     cell{revenue: decimal.Zero},
					card:     cell{revenue: decimal.Zero},
				})
			}
			c := cell{qty: l.Count, revenue: l.Revenue}
			if isCash {
				rows[i].cash = c
			} else {
				rows[i].card = c
			}
		}
	}
	merge(cash, true)
	merge(card, false)
	return rows
}
