// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

package segmenter

import (
	"io"
	"path"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/roadscene/semseg/internal/fsutil"
)

// SaveInferenceSamples renders `count` camera frames of dataDir starting at
// `offset` (see NewOutputs) and writes the results under a fresh
// `<runsDir>/<unix-timestamp>` directory: per frame, the overlay under the
// frame's own name and the raw mask under `raw_<name>`.
//
// A pre-existing directory of the same timestamp name is destroyed first. The
// first write error aborts the run; there is no partial-result salvage.
//
// It returns the output directory it wrote to.
func SaveInferenceSamples(runsDir, dataDir string, sess Session, height, width, offset, count int) (string, error) {
	runsDir = fsutil.MustReplaceTildeInDir(runsDir)
	outputDir := path.Join(runsDir, strconv.FormatInt(time.Now().Unix(), 10))
	if err := fsutil.ResetDir(outputDir); err != nil {
		return "", err
	}

	outputs, err := NewOutputs(sess, dataDir, height, width, offset, count)
	if err != nil {
		return "", err
	}
	klog.Infof("Saving inference samples to %s", outputDir)
	for {
		result, err := outputs.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if err := imaging.Save(result.Overlay, path.Join(outputDir, result.Name)); err != nil {
			return "", errors.Wrapf(err, "failed to save overlay for %q", result.Name)
		}
		if err := imaging.Save(result.RawMask, path.Join(outputDir, "raw_"+result.Name)); err != nil {
			return "", errors.Wrapf(err, "failed to save raw mask for %q", result.Name)
		}
	}
	return outputDir, nil
}
