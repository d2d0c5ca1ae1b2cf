// Package report renders spreadsheets for sellers.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shinyyama/closet-market/internal/model"
)

const (
	SalesSheet  = "Sales"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	timeLayout = "2006-01-02 15:04:05"
)

var salesHeader = []string{
	"No.", "Order code", "Created at", "Item", "Buyer", "Item price", "Shipping fee",
	"Platform fee", "Total", "Payment method", "Payment status", "Order status", "Completed at",
}

// SalesFilename names the export after the moment it was generated.
func SalesFilename(at time.Time) string {
	return fmt.Sprintf("sales_%s.xlsx", at.Format("20060102_150405"))
}

// SalesWorkbook lays out one row per order followed by a totals row that
// only counts completed orders.
func SalesWorkbook(orders []model.Order, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SalesSheet, "A1", &salesHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(salesHeader), 1)
	if err := f.SetCellStyle(SalesSheet, "A1", last, bold); err != nil {
		return nil, err
	}

	var revenue, fees, total int64
	for i, o := range orders {
		completed := ""
		if o.CompletedAt != nil {
			completed = o.CompletedAt.In(loc).Format(timeLayout)
		}
		row := []any{
			i + 1, o.Code, o.CreatedAt.In(loc).Format(timeLayout), o.ItemTitle, o.BuyerUID,
			o.ItemPrice, o.ShippingFee, o.PlatformFee, o.TotalAmount,
			string(o.PaymentMethod), string(o.PaymentStatus), string(o.Status), completed,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SalesSheet, cell, &row); err != nil {
			return nil, err
		}
		if o.Status == model.OrderStatusCompleted {
			revenue += o.ItemPrice
			fees += o.PlatformFee
			total += o.TotalAmount
		}
	}

	summary := len(orders) + 3
	totals := []any{"Completed totals", nil, nil, nil, nil, revenue, nil, fees, total}
	cell, _ := excelize.CoordinatesToCellName(1, summary)
	if err := f.SetSheetRow(SalesSheet, cell, &totals); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SalesSheet, cell, cell, bold); err != nil {
		return nil, err
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SalesSheet, "F2", fmt.Sprintf("I%d", summary), money); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SalesSheet, "B", "E", 22); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteSales streams the workbook to w.
func WriteSales(w io.Writer, orders []model.Order, loc *time.Location) error {
	f, err := SalesWorkbook(orders, loc)
	if err != nil {
		return fmt.Errorf("build sales workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}
