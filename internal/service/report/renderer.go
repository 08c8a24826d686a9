package report

import (
	"fmt"
	"unicode/utf8"
)

// Header — первая строка каждого листа.
var Header = []string{"Модель", "Версия", "Количество за неделю"}

const columnPadding = 2

// Sheet — лист книги: имя, строки (первая — заголовок) и ширины колонок.
type Sheet struct {
	Name         string
	Rows         [][]any
	ColumnWidths []int
}

// Workbook — табличная книга, не привязанная к формату файла.
type Workbook struct {
	Sheets []Sheet
}

// Render строит книгу: один лист на модель в порядке сводки.
// Пустая сводка даёт книгу без листов.
func Render(summary Summary) Workbook {
	wb := Workbook{Sheets: make([]Sheet, 0, len(summary.Models))}
	for _, model := range summary.Models {
		rows := make([][]any, 0, len(model.Versions)+1)
		header := make([]any, len(Header))
		for i, title := range Header {
			header[i] = title
		}
		rows = append(rows, header)
		for _, vc := range model.Versions {
			rows = append(rows, []any{model.Model, vc.Version, vc.Count})
		}

		wb.Sheets = append(wb.Sheets, Sheet{
			Name:         model.Model,
			Rows:         rows,
			ColumnWidths: columnWidths(rows, len(Header)),
		})
	}
	return wb
}

// columnWidths — для каждой колонки максимальная длина строкового значения ячейки плюс отступ.
func columnWidths(rows [][]any, columns int) []int {
	widths := make([]int, columns)
	for _, row := range rows {
		for i := 0; i < columns && i < len(row); i++ {
			if n := utf8.RuneCountInString(fmt.Sprint(row[i])); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range widths {
		widths[i] += columnPadding
	}
	return widths
}
