// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

// Package vgg fetches the pretrained VGG16 feature-extractor bundle (a TensorFlow
// SavedModel: graph definition plus variable store) that the segmentation network
// is built on top of.
//
// The bundle lives under `<dataDir>/vgg/`. It is considered present only when all
// three files of the bundle exist; a partial directory is fully reset and the
// archive re-downloaded -- there is no incremental repair.
package vgg

import (
	"fmt"
	"net/http"
	"os"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/roadscene/semseg/downloader"
	"github.com/roadscene/semseg/internal/fsutil"
)

const (
	// DownloadURL serves the zipped SavedModel bundle.
	DownloadURL = "https://s3-us-west-1.amazonaws.com/udacity-selfdrivingcar/vgg.zip"

	// SubDir is the bundle directory name under the data directory.
	SubDir = "vgg"

	// ZipFile is the local name for the downloaded archive. It is removed after
	// extraction to save space.
	ZipFile = "vgg.zip"
)

// BundleFiles are the files, relative to `<dataDir>/vgg/`, that make up a complete bundle.
var BundleFiles = []string{
	"variables/variables.data-00000-of-00001",
	"variables/variables.index",
	"saved_model.pb",
}

// MissingBundleFiles returns the relative paths of bundle files not present
// under `<dataDir>/vgg/`. An empty result means the bundle is complete.
func MissingBundleFiles(dataDir string) []string {
	vggPath := path.Join(fsutil.MustReplaceTildeInDir(dataDir), SubDir)
	var missing []string
	for _, file := range BundleFiles {
		if !fsutil.MustFileExists(path.Join(vggPath, file)) {
			missing = append(missing, file)
		}
	}
	return missing
}

// Download guarantees the pretrained VGG bundle exists under `<dataDir>/vgg/`,
// downloading and extracting it if any bundle file is missing.
//
// If the bundle is complete this is a no-op and no network request is made.
func Download(dataDir string) error {
	return DownloadWithClient(dataDir, nil)
}

// DownloadWithClient is like Download but uses the given *http.Client, so tests
// can stub the transport. A nil client uses a default one.
//
// On any missing bundle file the whole `vgg` directory is removed first -- files
// of unrelated provenance under it do not survive -- then the archive is
// downloaded with a progress bar, extracted into dataDir and deleted.
// Network or extraction failures propagate; there is no retry.
func DownloadWithClient(dataDir string, client *http.Client) error {
	dataDir = fsutil.MustReplaceTildeInDir(dataDir)
	if len(MissingBundleFiles(dataDir)) == 0 {
		return nil
	}

	vggPath := path.Join(dataDir, SubDir)
	if err := fsutil.ResetDir(vggPath); err != nil {
		return err
	}

	zipPath := path.Join(vggPath, ZipFile)
	fmt.Printf("Downloading pre-trained VGG model from %s ...\n", DownloadURL)
	size, err := downloader.DownloadWithClient(client, DownloadURL, zipPath, true)
	if err != nil {
		return err
	}
	klog.Infof("Downloaded %s, extracting model to %s", humanize.Bytes(uint64(size)), dataDir)
	if err := downloader.Unzip(zipPath, dataDir); err != nil {
		return err
	}
	if missing := MissingBundleFiles(dataDir); len(missing) > 0 {
		return errors.Errorf("downloaded and extracted %q, but bundle files %v are still missing under %q",
			DownloadURL, missing, vggPath)
	}
	if err := os.Remove(zipPath); err != nil {
		return errors.Wrapf(err, "failed to remove archive %q after extraction", zipPath)
	}
	return nil
}
