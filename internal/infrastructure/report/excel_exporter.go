// Package report writes the weekly stats workbook.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kaiwen/taskline/internal/application/port"
	"github.com/kaiwen/taskline/internal/domain/entity"
)

// ExcelExporter renders a group's latest KPI scores into an xlsx workbook.
type ExcelExporter struct {
	kpiRepo   port.KPIRepository
	outputDir string
	logger    *zap.Logger
}

// NewExcelExporter creates a new exporter
func NewExcelExporter(kpiRepo port.KPIRepository, outputDir string, logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{
		kpiRepo:   kpiRepo,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Export writes the weekly workbook for one group and returns the file path.
func (e *ExcelExporter) Export(ctx context.Context, group *entity.Group) (string, error) {
	scores, err := e.kpiRepo.ListByGroup(ctx, group.ID)
	if err != nil {
		return "", fmt.Errorf("failed to list kpi scores: %w", err)
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Weekly Report"
	f.SetSheetName(f.GetSheetName(0), sheetName)

	e.setCell(f, sheetName, "A1", "Group")
	e.setCell(f, sheetName, "B1", group.Name)
	e.setCell(f, sheetName, "A2", "Generated")
	e.setCell(f, sheetName, "B2", time.Now().Format("2006-01-02 15:04"))

	headers := []string{"Rank", "User", "Score", "Completed", "Late", "Overdue"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		e.setCell(f, sheetName, cell, h)
	}

	for i, score := range scores {
		row := 5 + i
		values := []interface{}{
			i + 1, score.UserID, score.Score,
			score.CompletedCount, score.LateCount, score.OverdueCount,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			e.setCell(f, sheetName, cell, v)
		}
	}

	name := fmt.Sprintf("weekly_report_%s_%s.xlsx", group.ID, time.Now().Format("20060102"))
	outputPath := filepath.Join(e.outputDir, name)
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	e.logger.Info("Weekly workbook written",
		zap.String("group_id", group.ID),
		zap.String("path", outputPath),
		zap.Int("rows", len(scores)))
	return outputPath, nil
}

func (e *ExcelExporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
