package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func article(source models.SourceID, url, date string) *models.Article {
	a := models.NewArticle(source, url)
	if date != "" {
		d, err := time.Parse(models.DateLayout, date)
		if err != nil {
			panic(err)
		}
		a.PublishedAt = models.Some(d)
	}
	a.Title = models.OptionalText("Título " + url)
	return a
}

func testWindow(t *testing.T) models.DateWindow {
	t.Helper()
	w, err := models.ParseDateWindow("2024-01-08", "2024-01-10", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return w
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "newspapers_2024-01-08_to_2024-01-10.xlsx", FileName(testWindow(t)))
}

func TestSortByDate(t *testing.T) {
	in := []*models.Article{
		article(models.SourceTVN, "c", "2024-01-10"),
		article(models.SourceTVN, "undated", ""),
		article(models.SourceTVN, "a", "2024-01-08"),
		article(models.SourceTVN, "b1", "2024-01-09"),
		article(models.SourceTVN, "b2", "2024-01-09"),
	}

	sorted := SortByDate(in)

	var urls []string
	for _, a := range sorted {
		urls = append(urls, a.URL)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c", "undated"}, urls)
	assert.Equal(t, "c", in[0].URL, "不修改入参")
}

func TestRow(t *testing.T) {
	a := article(models.SourceEmol, "https://www.emol.com/1", "2024-01-09")
	a.Body = models.Some(strings.Repeat("ñ", MaxCellLength+10))

	row := Row(a)
	require.Len(t, row, len(Columns))
	assert.Equal(t, "EMOL", row[0])
	assert.Equal(t, "https://www.emol.com/1", row[1])
	assert.Equal(t, "", row[2], "缺失字段为空")
	assert.Equal(t, "2024-01-09", row[3])
	assert.Equal(t, MaxCellLength, len([]rune(row[8].(string))))
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	grouped := map[models.SourceID][]*models.Article{
		models.SourceTVN: {
			article(models.SourceTVN, "https://www.24horas.cl/2", "2024-01-10"),
			article(models.SourceTVN, "https://www.24horas.cl/1", "2024-01-08"),
		},
		models.SourceCooperativa: {
			article(models.SourceCooperativa, "https://www.cooperativa.cl/1", "2024-01-09"),
		},
		models.SourceEmol: nil,
	}

	path, err := NewExcelExporter(dir).Export(testWindow(t), grouped)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "newspapers_2024-01-08_to_2024-01-10.xlsx"), path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "不残留临时文件")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"COOPERATIVA", "TVN"}, f.GetSheetList(), "按固定顺序,跳过没有记录的新闻源")

	rows, err := f.GetRows("TVN")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "https://www.24horas.cl/1", rows[1][1])
	assert.Equal(t, "2024-01-08", rows[1][3])
	assert.Equal(t, "https://www.24horas.cl/2", rows[2][1])

	rows, err = f.GetRows("COOPERATIVA")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Título https://www.cooperativa.cl/1", rows[1][5])
}

func TestExport_NoRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	_, err := NewExcelExporter(dir).Export(testWindow(t), map[models.SourceID][]*models.Article{
		models.SourceEmol: {},
	})
	require.ErrorIs(t, err, ErrNoRecords)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "没有记录时不创建任何文件")
}

func TestExport_UnwritableDir(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewExcelExporter(filepath.Join(blocker, "out")).Export(testWindow(t), map[models.SourceID][]*models.Article{
		models.SourceEmol: {article(models.SourceEmol, "https://www.emol.com/1", "2024-01-09")},
	})
	assert.Error(t, err)
}
