package extractor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFactory_LoaderFor(t *testing.T) {
	f := NewFactory()
	tests := []struct {
		path string
		want Loader
	}{
		{"review.txt", &TextLoader{}},
		{"notes.MD", &TextLoader{}},
		{"menu.pdf", &PDFLoader{}},
		{"guests.xlsx", &ExcelLoader{}},
		{"selfie.JPG", &ImageLoader{}},
		{"shot.webp", &ImageLoader{}},
	}
	for _, tt := range tests {
		l, _, err := f.LoaderFor(tt.path)
		require.NoError(t, err, tt.path)
		assert.IsType(t, tt.want, l, tt.path)
	}

	_, ext, err := f.LoaderFor("virus.exe")
	assert.ErrorIs(t, err, ErrUnsupportedFile)
	assert.Equal(t, ".exe", ext)

	assert.False(t, f.IsSupported(".mp4"))
	assert.True(t, f.IsSupported(".csv"))
}

func TestTextLoader_SanitizesControlBytes(t *testing.T) {
	sub, err := (&TextLoader{}).Load(strings.NewReader("hello\x00world\x07 ünïcode\n"))
	require.NoError(t, err)
	assert.Equal(t, "hello world  ünïcode", sub.Text)
	assert.Empty(t, sub.Images)
}

func TestImageLoader_KeepsBytes(t *testing.T) {
	data := []byte{1, 2, 3}
	sub, err := (&ImageLoader{}).Load(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{data}, sub.Images)
	assert.False(t, sub.IsEmpty())
}

func TestExcelLoader_FlattensRows(t *testing.T) {
	wb := excelize.NewFile()
	require.NoError(t, wb.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, wb.SetCellValue("Sheet1", "B1", "phone"))
	require.NoError(t, wb.SetCellValue("Sheet1", "A2", "Jane"))
	require.NoError(t, wb.SetCellValue("Sheet1", "B2", "555-123-4567"))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	sub, err := (&ExcelLoader{}).Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "name phone\nJane 555-123-4567", sub.Text)
}

func TestPDFLoader_RejectsGarbage(t *testing.T) {
	_, err := (&PDFLoader{}).Load(strings.NewReader("not a pdf"))
	assert.Error(t, err)
}
