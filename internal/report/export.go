// Package report exports a day's price suggestions to a spreadsheet for
// vendor review.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"pricing/internal/models"
)

const SheetName = "Suggestions"

var header = []any{
	"suggestion_id", "sku", "vendor_id", "suggestion_date", "current_price", "suggested_price",
	"expected_revenue", "expected_profit", "elasticity", "confidence", "reason", "status", "created_at",
}

type Store interface {
	ListSuggestionsByDate(ctx context.Context, date time.Time) ([]models.PriceSuggestion, error)
}

type Exporter struct {
	Repo   Store
	Logger *zap.Logger
}

// Export writes the date's suggestions as an xlsx workbook to w and returns the
// number of data rows.
func (e *Exporter) Export(ctx context.Context, date time.Time, w io.Writer) (int, error) {
	if e == nil || e.Repo == nil {
		return 0, fmt.Errorf("report: repository not configured")
	}
	date = models.Day(date)
	items, err := e.Repo.ListSuggestionsByDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("list suggestions: %w", err)
	}
	f, err := Workbook(items)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	if e.Logger != nil {
		e.Logger.Info("suggestions exported", zap.Time("date", date), zap.Int("rows", len(items)))
	}
	return len(items), nil
}

// Workbook lays out items one per row under a bold header.
func Workbook(items []models.PriceSuggestion) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		_ = f.Close()
		return nil, err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, s := range items {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			s.PublicID,
			s.SKU,
			s.VendorID,
			s.SuggestionDate.Format("2006-01-02"),
			s.CurrentPrice.InexactFloat64(),
			s.SuggestedPrice.InexactFloat64(),
			s.ExpectedRevenue.InexactFloat64(),
			s.ExpectedProfit.InexactFloat64(),
			s.Elasticity,
			s.Confidence,
			s.Reason,
			s.Status,
			s.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	_ = f.SetColWidth(SheetName, "A", "A", 38)
	_ = f.SetColWidth(SheetName, "K", "K", 60)
	return f, nil
}
