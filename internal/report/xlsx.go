package report

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"ipsagent/internal/notify"
)

func ExportFeedToXLSX(items []notify.FeedItem, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"request_id", "status", "unread", "title",
		"project", "project_code", "material",
		"requested_qty", "assigned_qty", "driver", "when",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, item := range items {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, item.RequestID)
		set(2, string(item.Status))
		set(3, item.Unread)
		set(4, item.Title)
		set(5, item.ProjectName)
		set(6, item.ProjectCode)
		set(7, item.MaterialName)
		set(8, item.RequestedQty)
		set(9, item.AssignedQty)
		set(10, item.DriverName)
		set(11, item.When)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
