package extractor

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/digimosa/content-moderation/internal/models"
)

// ExcelLoader flattens every non-empty cell of every sheet into lines of
// text, one row per line.
type ExcelLoader struct{}

func (l *ExcelLoader) Load(reader io.Reader) (models.Submission, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return models.Submission{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.Rows(sheet)
		if err != nil {
			continue
		}
		for rows.Next() {
			cols, err := rows.Columns()
			if err != nil {
				break
			}
			var cells []string
			for _, v := range cols {
				if v = strings.TrimSpace(v); v != "" {
					cells = append(cells, v)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " "))
			}
		}
		rows.Close()
	}
	return models.Submission{Text: strings.Join(lines, "\n")}, nil
}
