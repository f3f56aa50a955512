package archive

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/lumina/internal/model"
)

func TestPackageSkipsUnfinishedItems(t *testing.T) {
	items := []model.BatchItem{
		{Position: 1, Status: model.StatusDone, Output: []byte("one")},
		{Position: 2, Status: model.StatusError},
		{Position: 3, Status: model.StatusDone, Output: []byte("three")},
		{Position: 4, Status: model.StatusPending},
		{Position: 5, Status: model.StatusDone}, // no artifact
	}

	var buf bytes.Buffer
	n, err := Package(&buf, items, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	files := map[string]string{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			assert.Equal(t, "lumina_batch_edit/", f.Name)
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = string(data)
	}

	assert.Equal(t, map[string]string{
		"lumina_batch_edit/lumina_edit_1.jpg": "one",
		"lumina_batch_edit/lumina_edit_3.jpg": "three",
	}, files)
}

func TestPackageCustomLayout(t *testing.T) {
	var buf bytes.Buffer
	n, err := Package(&buf, []model.BatchItem{
		{Position: 7, Status: model.StatusDone, Output: []byte{1, 2, 3}},
	}, Options{Folder: "out", Prefix: "shot"})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "out/shot_7.jpg", zr.File[1].Name)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "lumina_edit_1.jpg", FileName(DefaultPrefix, 1))
	assert.Equal(t, "x_12.jpg", FileName("x", 12))
}
