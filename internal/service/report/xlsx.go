package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vladislavdragonenkov/r4c/internal/domain"
)

// ContentTypeXLSX — MIME-тип книги Office Open XML.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrSheetNameCollision возвращается, если имена двух листов совпадают без учёта регистра.
var ErrSheetNameCollision = errors.New("sheet names collide ignoring case")

// EncodeXLSX записывает книгу в w в формате xlsx.
// Пакет xlsx не допускает книгу без листов: для неё возвращается ErrEmptyWorkbook.
func EncodeXLSX(wb Workbook, w io.Writer) error {
	if len(wb.Sheets) == 0 {
		return domain.ErrEmptyWorkbook
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	// Стартовый лист новой книги переименовывается в первый настоящий.
	// Excel сравнивает имена листов без учёта регистра.
	bootstrap := f.GetSheetName(0)
	seen := make(map[string]string, len(wb.Sheets))
	for i, sheet := range wb.Sheets {
		key := strings.ToLower(sheet.Name)
		if prev, ok := seen[key]; ok {
			return domain.RenderError(fmt.Errorf("%w: %q and %q", ErrSheetNameCollision, prev, sheet.Name))
		}
		seen[key] = sheet.Name

		if i == 0 {
			if err := f.SetSheetName(bootstrap, sheet.Name); err != nil {
				return domain.RenderError(fmt.Errorf("rename sheet %q: %w", sheet.Name, err))
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return domain.RenderError(fmt.Errorf("create sheet %q: %w", sheet.Name, err))
		}
		if err := writeSheet(f, sheet); err != nil {
			return domain.RenderError(err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return domain.RenderError(fmt.Errorf("write xlsx: %w", err))
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet) error {
	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("sheet %q row %d: %w", sheet.Name, i+1, err)
		}
		values := row
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", sheet.Name, i+1, err)
		}
	}
	for i, width := range sheet.ColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("sheet %q column %d: %w", sheet.Name, i+1, err)
		}
		if err := f.SetColWidth(sheet.Name, col, col, float64(width)); err != nil {
			return fmt.Errorf("sheet %q column %s width: %w", sheet.Name, col, err)
		}
	}
	return nil
}
