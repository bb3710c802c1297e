// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

// Package carla loads road-scene captures in the CARLA simulator layout: a data
// directory holding `CameraRGB/*.png` camera frames and `CameraPrep/*.png`
// semantic-label frames with matching filenames.
//
// Frames are paired positionally after sorted enumeration of both directories;
// the pairing is never content-verified, so keeping the two listings aligned is
// the caller's invariant.
//
// Label frames carry per-pixel class IDs from the simulator's taxonomy. Only
// two of them are of interest here and get remapped: road becomes class 1 and
// vehicle class 2, everything else is background (0).
package carla

import (
	"image"
	_ "image/png"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	// RGBSubDir holds the raw camera frames.
	RGBSubDir = "CameraRGB"
	// LabelSubDir holds the paired semantic-label frames.
	LabelSubDir = "CameraPrep"

	// RoadLabelID and VehicleLabelID are the simulator taxonomy IDs that get remapped.
	RoadLabelID    = 7
	VehicleLabelID = 10

	// Class indices produced by RemapLabels.
	ClassBackground = 0
	ClassRoad       = 1
	ClassVehicle    = 2
	NumClasses      = 3
)

// Pair points at one camera frame and its label frame.
type Pair struct {
	Image, Label string
}

// CameraFrames lists the camera frame files under `<dataDir>/CameraRGB`, sorted by name.
func CameraFrames(dataDir string) ([]string, error) {
	return listPNGs(path.Join(dataDir, RGBSubDir))
}

// ImagePairs lists the (camera frame, label frame) pairs of the dataset.
// Pairing is positional over the two sorted listings, truncated to the shorter one.
func ImagePairs(dataDir string) ([]Pair, error) {
	images, err := listPNGs(path.Join(dataDir, RGBSubDir))
	if err != nil {
		return nil, err
	}
	labels, err := listPNGs(path.Join(dataDir, LabelSubDir))
	if err != nil {
		return nil, err
	}
	n := min(len(images), len(labels))
	pairs := make([]Pair, n)
	for ii := range pairs {
		pairs[ii] = Pair{Image: images[ii], Label: labels[ii]}
	}
	return pairs, nil
}

func listPNGs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list images in %q", dir)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		files = append(files, path.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadImage opens and decodes one frame.
func ReadImage(filePath string) (image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", filePath)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", filePath)
	}
	return img, nil
}

// RemapLabels converts a label frame to a flat mask of class indices, row-major.
// The class ID is taken from the red channel; RoadLabelID maps to ClassRoad,
// VehicleLabelID to ClassVehicle and every other ID to ClassBackground.
func RemapLabels(img image.Image) []uint8 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	mask := make([]uint8, width*height)
	pos := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			switch uint8(r >> 8) {
			case RoadLabelID:
				mask[pos] = ClassRoad
			case VehicleLabelID:
				mask[pos] = ClassVehicle
			default:
				mask[pos] = ClassBackground
			}
			pos++
		}
	}
	return mask
}

// ResizeFrame resizes a camera frame to width x height with Lanczos resampling.
// It is a no-op when the frame already has the target size.
func ResizeFrame(img image.Image, width, height int) image.Image {
	if size := img.Bounds().Size(); size.X == width && size.Y == height {
		return img
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// resizeLabels resizes a label frame with nearest-neighbor resampling, so class
// IDs are never interpolated into values outside the taxonomy.
func resizeLabels(img image.Image, width, height int) image.Image {
	if size := img.Bounds().Size(); size.X == width && size.Y == height {
		return img
	}
	return imaging.Resize(img, width, height, imaging.NearestNeighbor)
}
