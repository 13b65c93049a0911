package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/store"
	"ai-tutor-backend/models"

	"github.com/xuri/excelize/v2"
)

const (
	resourcesSheet = "Resources"
	summarySheet   = "Summary"
)

var resourceHeaders = []string{
	"ID", "Name", "Slug", "Resource Type", "Asset", "Description", "Created At", "Has Embedding", "Embedding Dimensions",
}

// ExportResult is a generated catalog workbook.
type ExportResult struct {
	Filename    string
	Data        *bytes.Buffer
	RecordCount int
}

// ExportService builds the XLSX catalog of resources for curators.
type ExportService struct {
	resources store.ResourceRepository
	now       func() time.Time
}

func NewExportService(resources store.ResourceRepository) *ExportService {
	return &ExportService{resources: resources, now: time.Now}
}

// ExportResources writes every resource to a workbook with a per-type summary
// sheet. Embeddings themselves are not exported, only whether one is present.
func (es *ExportService) ExportResources(ctx context.Context) (*ExportResult, error) {
	resources, err := es.resources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resources: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Error closing Excel file", "error", err)
		}
	}()

	if err := writeResourceSheet(f, resources); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, resources); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(resourcesSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("resources_%s.xlsx", es.now().UTC().Format("20060102_150405")),
		Data:        buf,
		RecordCount: len(resources),
	}, nil
}

func writeResourceSheet(f *excelize.File, resources []models.Resource) error {
	if _, err := f.NewSheet(resourcesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeRow(f, resourcesSheet, 1, toCells(resourceHeaders)); err != nil {
		return err
	}

	for i, r := range resources {
		row := []interface{}{
			r.MongoID,
			r.Name,
			r.Slug,
			r.ResourceType,
			r.Asset,
			r.Description,
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			len(r.Embedding) > 0,
			len(r.Embedding),
		}
		if err := writeRow(f, resourcesSheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(resourcesSheet, "B", "B", 32); err != nil {
		return err
	}
	return f.SetColWidth(resourcesSheet, "F", "F", 60)
}

func writeSummarySheet(f *excelize.File, resources []models.Resource) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	byType := map[string]int{}
	embedded := 0
	for _, r := range resources {
		t := r.ResourceType
		if t == "" {
			t = "(none)"
		}
		byType[t]++
		if len(r.Embedding) > 0 {
			embedded++
		}
	}

	rows := [][]interface{}{
		{"Total Resources", len(resources)},
		{"With Embedding", embedded},
		{"Without Embedding", len(resources) - embedded},
		{},
		{"Resource Type", "Count"},
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		rows = append(rows, []interface{}{t, byType[t]})
	}

	for i, row := range rows {
		if err := writeRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toCells(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
