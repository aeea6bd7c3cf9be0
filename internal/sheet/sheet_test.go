package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDetectFormat(t *testing.T) {
	format, err := DetectFormat("Bookmarks.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	format, err = DetectFormat("export.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	_, err = DetectFormat("bookmarks.html")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "csv:links.csv", SourceLabel(FormatCSV, "/tmp/uploads/links.csv"))

	long := SourceLabel(FormatXLSX, strings.Repeat("é", 200)+".xlsx")
	assert.Equal(t, 120, len([]rune(long)))
	assert.True(t, strings.HasPrefix(long, "xlsx:é"))
}

func TestParseCSV(t *testing.T) {
	input := "\ufeff url , Title,Tags\n" +
		"https://a.com,A site,\"news, tech\"\n" +
		" , ,\n" +
		"https://b.com,,go\n" +
		"https://c.com\n"

	got, err := Parse(strings.NewReader(input), "bookmarks.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"url", "Title", "Tags"}, got.Headers)
	require.Len(t, got.Rows, 3)

	first := got.Rows[0]
	assert.Equal(t, 2, first.RowNumber)
	url, ok := first.Value("url")
	require.True(t, ok)
	assert.Equal(t, "https://a.com", url)
	tags, ok := first.Value("Tags")
	require.True(t, ok)
	assert.Equal(t, "news, tech", tags)

	// The blank record still counts towards numbering.
	second := got.Rows[1]
	assert.Equal(t, 4, second.RowNumber)
	_, ok = second.Value("Title")
	assert.False(t, ok)

	third := got.Rows[2]
	assert.Equal(t, 5, third.RowNumber)
	_, present := third.Values["Tags"]
	assert.False(t, present)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fileName string
		wantErr  error
	}{
		{"empty file", "", "a.csv", ErrNoHeader},
		{"blank header", " , \nhttps://a.com,x\n", "a.csv", ErrNoHeader},
		{"header only", "url,title\n", "a.csv", ErrNoRows},
		{"only blank rows", "url,title\n , \n", "a.csv", ErrNoRows},
		{"unknown extension", "url\nhttps://a.com\n", "a.json", ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), tt.fileName)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func createTestWorkbook(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheetName := f.GetSheetName(0)

	for rowIdx, row := range rows {
		for colIdx, val := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheetName, cell, val))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestParseXLSX(t *testing.T) {
	workbook := createTestWorkbook(t, [][]string{
		{"Link", "Name", "Notes"},
		{"https://a.com", "A site", "first"},
		{"", "", ""},
		{"https://b.com", "", "third"},
	})

	got, err := Parse(workbook, "export.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"Link", "Name", "Notes"}, got.Headers)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, 2, got.Rows[0].RowNumber)
	assert.Equal(t, 4, got.Rows[1].RowNumber)

	link, ok := got.Rows[1].Value("Link")
	require.True(t, ok)
	assert.Equal(t, "https://b.com", link)
	_, ok = got.Rows[1].Value("Name")
	assert.False(t, ok)
}

func TestParseXLSXRejectsGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("not a zip"), "export.xlsx")
	assert.Error(t, err)
}
