// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

package vgg

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

// roundTripFunc lets tests stub an http.Client transport with a plain function.
type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// writeBundle creates the three bundle files under `<dataDir>/vgg/`.
func writeBundle(t *testing.T, dataDir string) {
	t.Helper()
	for _, file := range BundleFiles {
		filePath := path.Join(dataDir, SubDir, file)
		require.NoError(t, os.MkdirAll(path.Dir(filePath), 0777))
		require.NoError(t, os.WriteFile(filePath, []byte(file), 0644))
	}
}

// bundleZip builds an in-memory archive holding a complete bundle under "vgg/".
func bundleZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, file := range BundleFiles {
		w, err := zw.Create(SubDir + "/" + file)
		require.NoError(t, err)
		_, err = w.Write([]byte(file))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownloadNoopWhenBundleComplete(t *testing.T) {
	dataDir := t.TempDir()
	writeBundle(t, dataDir)
	siblingPath := path.Join(dataDir, SubDir, "notes.txt")
	require.NoError(t, os.WriteFile(siblingPath, []byte("keep"), 0644))

	calls := 0
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, io.ErrUnexpectedEOF
	})}
	require.NoError(t, DownloadWithClient(dataDir, client))
	require.Zero(t, calls, "no network request must be made when the bundle is complete")

	got, err := os.ReadFile(siblingPath)
	require.NoError(t, err)
	require.Equal(t, "keep", string(got), "a complete bundle directory must be left untouched")
}

func TestDownloadResetsPartialBundle(t *testing.T) {
	dataDir := t.TempDir()
	writeBundle(t, dataDir)
	// Remove exactly one bundle file and plant a sibling that must not survive the reset.
	require.NoError(t, os.Remove(path.Join(dataDir, SubDir, BundleFiles[1])))
	siblingPath := path.Join(dataDir, SubDir, "stale.txt")
	require.NoError(t, os.WriteFile(siblingPath, []byte("stale"), 0644))
	require.Len(t, MissingBundleFiles(dataDir), 1)

	archive := bundleZip(t)
	var requested []string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		requested = append(requested, r.URL.String())
		return &http.Response{
			StatusCode:    http.StatusOK,
			ContentLength: int64(len(archive)),
			Body:          io.NopCloser(bytes.NewReader(archive)),
			Request:       r,
		}, nil
	})}

	require.NoError(t, DownloadWithClient(dataDir, client))
	require.Len(t, requested, 1)
	require.Empty(t, MissingBundleFiles(dataDir))

	_, err := os.Stat(siblingPath)
	require.True(t, os.IsNotExist(err), "previously-present sibling files must not survive the reset")
	_, err = os.Stat(path.Join(dataDir, SubDir, ZipFile))
	require.True(t, os.IsNotExist(err), "the downloaded archive must be removed after extraction")
}

func TestDownloadFailsOnIncompleteArchive(t *testing.T) {
	dataDir := t.TempDir()

	// An archive missing the graph definition file: extraction succeeds but the
	// bundle check must fail.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(SubDir + "/" + BundleFiles[0])
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	archive := buf.Bytes()

	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode:    http.StatusOK,
			ContentLength: int64(len(archive)),
			Body:          io.NopCloser(bytes.NewReader(archive)),
			Request:       r,
		}, nil
	})}
	require.Error(t, DownloadWithClient(dataDir, client))
}
