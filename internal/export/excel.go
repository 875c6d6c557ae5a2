// Package export 将抓取结果导出为表格文件
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/RecoveryAshes/newscrawl/internal/utils"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ErrNoRecords 没有可导出的记录,不视为失败
var ErrNoRecords = errors.New("没有可导出的记录")

// MaxCellLength 单元格最大字符数
const MaxCellLength = excelize.TotalCellChars

// Columns 每个工作表的列
var Columns = []string{"source", "url", "author", "date", "tag", "title", "drophead", "excerpt", "body"}

var columnWidths = []float64{14, 60, 24, 12, 20, 60, 60, 60, 100}

// ExcelExporter 每个新闻源一个工作表的xlsx导出器
type ExcelExporter struct {
	dir    string
	logger zerolog.Logger
}

// NewExcelExporter 创建导出器,dir为输出目录
func NewExcelExporter(dir string) *ExcelExporter {
	return &ExcelExporter{
		dir:    dir,
		logger: utils.Component("export"),
	}
}

// FileName 输出文件名,包含请求的日期窗口
func FileName(window models.DateWindow) string {
	return fmt.Sprintf("newspapers_%s_to_%s.xlsx",
		window.Start.Format(models.DateLayout),
		window.End.Format(models.DateLayout))
}

// Export 写出表格并返回文件路径
// 先写入临时文件再重命名,出错时不留下不完整的文件
func (e *ExcelExporter) Export(window models.DateWindow, grouped map[models.SourceID][]*models.Article) (string, error) {
	total := 0
	for _, articles := range grouped {
		total += len(articles)
	}
	if total == 0 {
		return "", ErrNoRecords
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("创建表头样式失败: %w", err)
	}

	sheets := 0
	for _, id := range models.AllSources {
		articles := grouped[id]
		if len(articles) == 0 {
			continue
		}

		name := string(id)
		if sheets == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return "", fmt.Errorf("创建工作表 %s 失败: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("创建工作表 %s 失败: %w", name, err)
		}
		sheets++

		if err := writeSheet(f, name, headerStyle, SortByDate(articles)); err != nil {
			return "", fmt.Errorf("写入工作表 %s 失败: %w", name, err)
		}
		e.logger.Debug().Str("sheet", name).Int("rows", len(articles)).Msg("工作表写入完成")
	}
	f.SetActiveSheet(0)

	path := filepath.Join(e.dir, FileName(window))
	if err := save(f, path); err != nil {
		return "", err
	}

	e.logger.Info().Str("path", path).Int("articles", total).Int("sheets", sheets).Msgf("💾 已导出 %d 篇文章", total)
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, articles []*models.Article) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	for i, w := range columnWidths {
		if err := sw.SetColWidth(i+1, i+1, w); err != nil {
			return err
		}
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, a := range articles {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, Row(a)); err != nil {
			return err
		}
	}

	return sw.Flush()
}

// Row 文章对应的一行,缺失字段为空字符串
func Row(a *models.Article) []interface{} {
	values := []string{
		string(a.Source),
		a.URL,
		a.Author.OrElse(""),
		a.DateString(),
		a.Tag.OrElse(""),
		a.Title.OrElse(""),
		a.Drophead.OrElse(""),
		a.Excerpt.OrElse(""),
		a.Body.OrElse(""),
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = utils.TruncateRunes(v, MaxCellLength)
	}
	return row
}

// SortByDate 按日期升序稳定排序,无日期的排在最后,不修改入参
func SortByDate(articles []*models.Article) []*models.Article {
	sorted := slices.Clone(articles)
	slices.SortStableFunc(sorted, func(a, b *models.Article) int {
		da, okA := a.PublishedAt.Get()
		db, okB := b.PublishedAt.Get()
		switch {
		case okA && okB:
			return da.Compare(db)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

// save 写入同目录下的临时文件后重命名
func save(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".newspapers-*.xlsx")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("写入表格失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("写入表格失败: %w", err)
	}
	// CreateTemp 创建的文件权限为0600
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("保存表格失败: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("保存表格失败: %w", err)
	}
	return nil
}
