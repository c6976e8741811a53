package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/example/brainphaser/internal/database"
	"github.com/example/brainphaser/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath       string // Path to the Excel or CSV file
	CategoryColumn string // Column with the category title
	QuestionColumn string // Column with the question
	AnswerColumn   string // Column with the answer
	SheetName      string // Name of the sheet to import, first sheet if empty
	StartRow       int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		CategoryColumn: "A",
		QuestionColumn: "B",
		AnswerColumn:   "C",
		StartRow:       2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed    int
	CategoriesCreated int
	Created           int
	Skipped           int
	Errors            []string
}

// Importer writes imported challenges into the store
type Importer struct {
	store  *database.Store
	logger *zap.Logger
}

// NewImporter creates a new importer
func NewImporter(store *database.Store, logger *zap.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// ImportChallenges imports challenges from an Excel or CSV file
func (im *Importer) ImportChallenges(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	if config.StartRow < 1 {
		config.StartRow = 1
	}

	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	categoryCol, err := excelize.ColumnNameToNumber(config.CategoryColumn)
	if err != nil {
		return nil, fmt.Errorf("invalid category column: %w", err)
	}
	questionCol, err := excelize.ColumnNameToNumber(config.QuestionColumn)
	if err != nil {
		return nil, fmt.Errorf("invalid question column: %w", err)
	}
	answerCol, err := excelize.ColumnNameToNumber(config.AnswerColumn)
	if err != nil {
		return nil, fmt.Errorf("invalid answer column: %w", err)
	}

	categories, err := im.store.Categories.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing categories: %w", err)
	}
	categoryMap := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryMap[strings.ToLower(c.Title)] = c.ID
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < config.StartRow-1 || isBlank(row) {
			continue
		}
		result.TotalProcessed++

		rec := challengeRecord{
			category: cell(row, categoryCol),
			question: cell(row, questionCol),
			answer:   cell(row, answerCol),
		}
		if err := im.processRecord(ctx, rec, categoryMap, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}

	im.logger.Info("Imported challenges",
		zap.String("file", filepath.Base(config.FilePath)),
		zap.Int("processed", result.TotalProcessed),
		zap.Int("created", result.Created),
		zap.Int("categories_created", result.CategoriesCreated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

type challengeRecord struct {
	category string
	question string
	answer   string
}

func (im *Importer) processRecord(ctx context.Context, rec challengeRecord, categoryMap map[string]int64, result *ImportResult) error {
	if rec.category == "" {
		return errors.New("category cannot be empty")
	}
	if rec.question == "" {
		return errors.New("question cannot be empty")
	}
	if rec.answer == "" {
		return errors.New("answer cannot be empty")
	}

	categoryID, err := im.getOrCreateCategory(ctx, rec.category, categoryMap, result)
	if err != nil {
		return err
	}

	exists, err := im.store.Challenges.ExistsInCategory(ctx, categoryID, rec.question)
	if err != nil {
		return err
	}
	if exists {
		result.Skipped++
		return nil
	}

	challenge := &models.Challenge{
		CategoryID: categoryID,
		Question:   rec.question,
		Answer:     rec.answer,
	}
	if err := im.store.Challenges.Create(ctx, challenge); err != nil {
		return err
	}
	result.Created++
	return nil
}

// getOrCreateCategory gets a category by title or creates a new one if it doesn't exist
func (im *Importer) getOrCreateCategory(ctx context.Context, title string, categoryMap map[string]int64, result *ImportResult) (int64, error) {
	key := strings.ToLower(title)
	if id, ok := categoryMap[key]; ok {
		return id, nil
	}

	category := &models.Category{Title: title}
	if err := im.store.Categories.Create(ctx, category); err != nil {
		return 0, err
	}
	categoryMap[key] = category.ID
	result.CategoriesCreated++
	return category.ID, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cell returns the trimmed value of a 1-based column
func cell(row []string, col int) string {
	if col-1 < len(row) {
		return strings.TrimSpace(row[col-1])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
