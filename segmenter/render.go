// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

package segmenter

import (
	"image"
	"image/color"
	"io"
	"path/filepath"

	"github.com/disintegration/imaging"
	timage "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/roadscene/semseg/carla"
)

var (
	// Overlay colors: semi-transparent green for road, red for vehicle.
	roadOverlayColor    = color.NRGBA{G: 255, A: 127}
	vehicleOverlayColor = color.NRGBA{R: 255, A: 127}

	// Raw mask colors: solid, on black background.
	roadMaskColor    = [3]uint8{0, 255, 0}
	vehicleMaskColor = [3]uint8{255, 0, 0}
)

// Result is the rendered classification of one camera frame.
type Result struct {
	// Name is the base filename of the source frame.
	Name string
	// Overlay is the source frame with the vehicle mask, then the road mask,
	// composited over it as semi-transparent color layers.
	Overlay image.Image
	// RawMask is a solid-color rendering of the same masks on black.
	RawMask image.Image
}

// Outputs is a finite, forward-only iterator of rendered inference results over
// a slice of the dataset's camera frames.
type Outputs struct {
	sess          Session
	files         []string
	height, width int
	next          int
	toTensor      *timage.ToTensorConfig
}

// NewOutputs prepares the renderer over `count` camera frames of dataDir
// starting at `offset` of the sorted listing -- typically the frames right
// after the training cap. The range is clamped to the available frames.
//
// sess is the caller-owned execution handle; it is never closed here.
func NewOutputs(sess Session, dataDir string, height, width, offset, count int) (*Outputs, error) {
	files, err := carla.CameraFrames(dataDir)
	if err != nil {
		return nil, err
	}
	if offset < 0 || count < 0 {
		return nil, errors.Errorf("offset (%d) and count (%d) must be non-negative", offset, count)
	}
	start := min(offset, len(files))
	end := min(start+count, len(files))
	return &Outputs{
		sess:     sess,
		files:    files[start:end],
		height:   height,
		width:    width,
		toTensor: timage.ToTensor(dtypes.Float32).MaxValue(255),
	}, nil
}

// Next renders the next frame. It returns io.EOF once the slice is exhausted.
// Any decode or execution error is final: the iterator is not resumable past it.
func (out *Outputs) Next() (*Result, error) {
	if out.next >= len(out.files) {
		return nil, io.EOF
	}
	filePath := out.files[out.next]
	out.next++

	frame, err := carla.ReadImage(filePath)
	if err != nil {
		return nil, err
	}
	frame = carla.ResizeFrame(frame, out.width, out.height)

	// Single-frame batch, dropout disabled.
	logits, err := out.sess.Run(out.toTensor.Batch([]image.Image{frame}), 1)
	if err != nil {
		return nil, errors.WithMessagef(err, "forward pass failed for %q", filePath)
	}
	classes := ArgMaxClasses(logits, out.height*out.width)

	return &Result{
		Name:    filepath.Base(filePath),
		Overlay: renderOverlay(frame, classes, out.width, out.height),
		RawMask: renderRawMask(classes, out.width, out.height),
	}, nil
}

// renderOverlay composites the vehicle mask and then the road mask over the frame.
func renderOverlay(frame image.Image, classes []uint8, width, height int) image.Image {
	overlay := imaging.Overlay(frame, classLayer(classes, carla.ClassVehicle, width, height, vehicleOverlayColor),
		image.Pt(0, 0), 1.0)
	return imaging.Overlay(overlay, classLayer(classes, carla.ClassRoad, width, height, roadOverlayColor),
		image.Pt(0, 0), 1.0)
}

// classLayer builds a layer that is `c` wherever the pixel has the given class
// and fully transparent elsewhere.
func classLayer(classes []uint8, class uint8, width, height int, c color.NRGBA) *image.NRGBA {
	layer := image.NewNRGBA(image.Rect(0, 0, width, height))
	for p, cls := range classes {
		if cls == class {
			layer.SetNRGBA(p%width, p/width, c)
		}
	}
	return layer
}

// renderRawMask builds the solid-color mask image. The vehicle and road
// contributions are summed per channel as if they were independent; arg-max
// classes are mutually exclusive, so today no pixel ever receives both -- a
// different classification policy would make this double-count color.
func renderRawMask(classes []uint8, width, height int) image.Image {
	mask := image.NewNRGBA(image.Rect(0, 0, width, height))
	for p, cls := range classes {
		offset := (p / width * mask.Stride) + (p % width * 4)
		if cls == carla.ClassVehicle {
			for ch, v := range vehicleMaskColor {
				mask.Pix[offset+ch] += v
			}
		}
		if cls == carla.ClassRoad {
			for ch, v := range roadMaskColor {
				mask.Pix[offset+ch] += v
			}
		}
		mask.Pix[offset+3] = 255
	}
	return mask
}
