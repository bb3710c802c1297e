// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

package downloader

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	payload := []byte("pretend this is a model bundle")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	filePath := path.Join(t.TempDir(), "sub", "bundle.zip")
	size, err := Download(server.URL, filePath, false)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), size)

	got, err := os.ReadFile(filePath)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestDownloadWithClientFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Immediately close so the request fails.

	filePath := path.Join(t.TempDir(), "bundle.zip")
	_, err := DownloadWithClient(server.Client(), server.URL, filePath, false)
	require.Error(t, err)
}

// buildZip writes a zip archive with the given name->content entries to filePath.
func buildZip(t *testing.T, filePath string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filePath, buf.Bytes(), 0644))
}

func TestUnzip(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := path.Join(tmpDir, "bundle.zip")
	buildZip(t, zipPath, map[string]string{
		"vgg/saved_model.pb":                          "graph",
		"vgg/variables/variables.index":               "index",
		"vgg/variables/variables.data-00000-of-00001": "data",
	})

	destDir := path.Join(tmpDir, "out")
	require.NoError(t, Unzip(zipPath, destDir))

	for name, want := range map[string]string{
		"vgg/saved_model.pb":                          "graph",
		"vgg/variables/variables.index":               "index",
		"vgg/variables/variables.data-00000-of-00001": "data",
	} {
		got, err := os.ReadFile(path.Join(destDir, name))
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := path.Join(tmpDir, "evil.zip")
	buildZip(t, zipPath, map[string]string{"../escaped.txt": "nope"})

	err := Unzip(zipPath, path.Join(tmpDir, "out"))
	require.Error(t, err)
}

func TestUnzipCorruptArchive(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := path.Join(tmpDir, "corrupt.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("definitely not a zip"), 0644))
	require.Error(t, Unzip(zipPath, tmpDir))
}
