// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

// Package segmenter runs a trained road/vehicle segmentation model over held-out
// camera frames and renders its per-pixel classification: a semi-transparent
// color overlay on the original frame, plus a raw solid-color mask image.
//
// The model itself lives behind the Session interface -- the execution handle is
// created, owned and closed by the caller; this package only issues forward
// passes through it.
package segmenter

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// Session is the execution handle over the loaded model graph.
type Session interface {
	// Run executes a forward pass over a batch of camera frames, shaped
	// `[batch, height, width, 3]` (float32, 0 to 255 range), and returns the
	// per-pixel class logits with the class axis last: either
	// `[batch, height, width, classes]` or `[pixels, classes]`.
	//
	// keepProb is the dropout keep-probability fed to the graph; inference
	// passes 1 to disable dropout.
	Run(frames *tensors.Tensor, keepProb float32) (*tensors.Tensor, error)
}

// ArgMaxClasses reduces logits to one class index per pixel, taking the arg-max
// over the trailing class axis. numPixels is the expected height*width of one
// frame; anything inconsistent with the logits shape is an in-process contract
// violation and panics.
func ArgMaxClasses(logits *tensors.Tensor, numPixels int) []uint8 {
	shape := logits.Shape()
	if shape.Rank() < 2 {
		exceptions.Panicf("segmenter: logits must have the class axis last, got rank-%d shape %s", shape.Rank(), shape)
	}
	numClasses := shape.Dimensions[shape.Rank()-1]
	if numClasses < 2 || shape.Size() != numPixels*numClasses {
		exceptions.Panicf("segmenter: logits shape %s does not hold %d pixels with a trailing class axis",
			shape, numPixels)
	}
	switch logits.DType() {
	case dtypes.Float32:
		return argMaxImpl[float32](logits, numPixels, numClasses)
	case dtypes.Float64:
		return argMaxImpl[float64](logits, numPixels, numClasses)
	default:
		exceptions.Panicf("segmenter: logits dtype %s not supported, use Float32 or Float64", logits.DType())
	}
	return nil
}

func argMaxImpl[T interface{ float32 | float64 }](logits *tensors.Tensor, numPixels, numClasses int) []uint8 {
	classes := make([]uint8, numPixels)
	tensors.MustConstFlatData(logits, func(flat []T) {
		for p := range classes {
			base := p * numClasses
			best := 0
			for c := 1; c < numClasses; c++ {
				if flat[base+c] > flat[base+best] {
					best = c
				}
			}
			classes[p] = uint8(best)
		}
	})
	return classes
}
