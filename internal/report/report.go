// Package report renders planner data as downloadable PDF documents.
package report

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf"

	"github.com/kopiplan/kopiplan/internal/finance"
)

// ProjectionPDF renders the monthly projection sweep as a landscape table.
func ProjectionPDF(businessName string, cfg finance.ProjectionConfig, rows []finance.ProjectionRow) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Monthly Profit Projection - "+businessName)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf(
		"Price per cup %s  |  Selling days per month %d  |  Fixed costs %s  |  COGS per cup %s",
		money(cfg.PricePerServing),
		cfg.DaysPerMonth,
		money(finance.FixedCostsTotal(cfg.FixedItems)),
		money(finance.TotalCostPerServing(cfg.COGSItems)),
	))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf(
		"Bonus: target %s cups/month, %s per cup above target, %d baristas",
		humanize.Comma(cfg.Bonus.Target),
		money(cfg.Bonus.PerServingBonus),
		cfg.Bonus.BaristaCount,
	))
	pdf.Ln(8)

	headers := []string{"Cups/day", "Cups/month", "Revenue", "Variable cost", "Gross profit", "Bonus", "Net profit"}
	widths := []float64{24, 28, 42, 42, 42, 42, 42}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		cells := []string{
			humanize.Comma(row.ServingsPerDay),
			humanize.Comma(row.MonthlyServings),
			money(row.Revenue),
			money(row.VariableCost),
			money(row.GrossProfit),
			money(row.Bonus),
			money(row.NetProfit),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf)
}

// ShoppingListPDF renders the daily shopping list, most expensive ingredient
// first, with both the raw requirement cost and the whole-package cost.
func ShoppingListPDF(businessName string, dailyTarget int64, list finance.ShoppingList) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Shopping List - "+businessName)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf("For %s cups per day, %d ingredients", humanize.Comma(dailyTarget), list.TotalItems))
	pdf.Ln(8)

	headers := []string{"Ingredient", "Required", "Unit cost", "Cost", "Packages", "To buy"}
	widths := []float64{50, 28, 28, 28, 22, 30}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, e := range list.Entries {
		cells := []string{
			e.Name,
			finance.FormatQuantity(e.RequiredQuantity, e.Unit),
			fmt.Sprintf("%.2f", e.UnitCost),
			money(e.TotalCost),
			humanize.Comma(e.Packages),
			money(e.PackageCost),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(widths[3], 7, money(list.GrandTotal), "1", 0, "R", true, 0, "")
	pdf.CellFormat(widths[4], 7, "", "1", 0, "R", true, 0, "")
	pdf.CellFormat(widths[5], 7, money(list.PurchaseTotal), "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	return output(pdf)
}

func money(amount int64) string {
	return "Rp " + humanize.Comma(amount)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
