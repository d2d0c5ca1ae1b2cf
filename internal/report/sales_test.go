package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shinyyama/closet-market/internal/model"
)

func TestWriteSales(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	done := created.Add(72 * time.Hour)
	orders := []model.Order{
		{
			Code: "ORD20250310AAAA", CreatedAt: created, ItemTitle: "Denim jacket", BuyerUID: "b1",
			ItemPrice: 500000, ShippingFee: 30000, PlatformFee: 25000, TotalAmount: 555000,
			PaymentMethod: model.PaymentMethodVNPay, PaymentStatus: model.PaymentStatusPaid,
			Status: model.OrderStatusCompleted, CompletedAt: &done,
		},
		{
			Code: "ORD20250310BBBB", CreatedAt: created, ItemTitle: "Silk scarf", BuyerUID: "b2",
			ItemPrice: 200000, ShippingFee: 0, PlatformFee: 10000, TotalAmount: 210000,
			PaymentMethod: model.PaymentMethodCOD, PaymentStatus: model.PaymentStatusPending,
			Status: model.OrderStatusCancelled,
		},
	}

	var buf bytes.Buffer
	if err := WriteSales(&buf, orders, time.FixedZone("ICT", 7*3600)); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SalesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want header + 2 orders + blank + totals", len(rows))
	}
	if rows[0][1] != "Order code" {
		t.Errorf("header = %v", rows[0])
	}

	tests := []struct {
		cell string
		want string
	}{
		{"B2", "ORD20250310AAAA"},
		{"C2", "2025-03-10 09:00:00"},
		{"L2", "completed"},
		{"M2", "2025-03-13 09:00:00"},
		{"K3", "pending"},
		{"M3", ""},
		{"A5", "Completed totals"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(SalesSheet, tt.cell)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
		}
	}

	raw, err := f.GetCellValue(SalesSheet, "I5", excelize.Options{RawCellValue: true})
	if err != nil || raw != "555000" {
		t.Errorf("completed total = %q, %v", raw, err)
	}
}

func TestSalesFilename(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 10, 9, 5, 7, 0, time.UTC)
	if got := SalesFilename(at); got != "sales_20250310_090507.xlsx" {
		t.Errorf("SalesFilename = %q", got)
	}
}
