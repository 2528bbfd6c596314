package loader

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/caselens/pkg/domain/model"
	"github.com/xuri/excelize/v2"
)

// loadExcel reads the first worksheet. Cells are read raw so that dates come
// through as serial numbers regardless of the display format of the workbook.
// GetRows keeps empty rows in place, so records are numbered like the sheet.
func (l *Loader) loadExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open workbook", goerr.V("path", path))
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, goerr.New("workbook has no sheets", goerr.V("path", path), goerr.T(model.ErrTagEmptyFile))
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read rows", goerr.V("path", path), goerr.V("sheet", sheets[0]))
	}

	table, err := l.buildTable(rows, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid worksheet layout", goerr.V("path", path), goerr.V("sheet", sheets[0]))
	}
	table.Sheet = sheets[0]
	table.Encoding = "xlsx"
	return table, nil
}
