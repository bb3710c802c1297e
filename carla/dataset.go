// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

package carla

import (
	"image"
	"io"
	"math/rand"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	timage "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Dataset implements train.Dataset, yielding batches of camera frames and their
// remapped label masks.
//
// A Dataset is a single finite, forward-only pass over its file listing; Reset
// rewinds it (drawing a fresh permutation when a shuffle rng is set), so the
// same value can be re-used across epochs.
type Dataset struct {
	name          string
	pairs         []Pair
	height, width int
	batchSize     int
	shuffle       *rand.Rand
	toTensor      *timage.ToTensorConfig

	// mu protects indices and position.
	mu       sync.Mutex
	indices  []int
	position int
}

var (
	AssertDatasetIsTrainDataset *Dataset
	_                           train.Dataset = AssertDatasetIsTrainDataset
)

// NewDataset creates a train.Dataset over the pairs found in dataDir.
//
// It takes the following arguments:
//
//   - height, width: target frame size; frames of a different size are resized
//     (Lanczos for camera frames, nearest-neighbor for label frames).
//   - limit: cap on the number of pairs used, taken from the front of the sorted
//     listing. This makes the train/test split boundary an explicit input; use
//     0 for no cap.
//   - batchSize: number of pairs per Yield. The final batch of a pass may be smaller.
//   - shuffle: if set (not nil), the pair order is re-shuffled with it on every
//     Reset. A nil shuffle keeps the listing order, which also makes runs reproducible.
func NewDataset(name, dataDir string, height, width, limit, batchSize int, shuffle *rand.Rand) (*Dataset, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("batch size must be positive, got %d", batchSize)
	}
	pairs, err := ImagePairs(dataDir)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	ds := &Dataset{
		name:      name,
		pairs:     pairs,
		height:    height,
		width:     width,
		batchSize: batchSize,
		shuffle:   shuffle,
		toTensor:  timage.ToTensor(dtypes.Float32).MaxValue(255),
	}
	ds.Reset() // Creates the first ordering.
	return ds, nil
}

// Name implements train.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// NumPairs returns how many pairs the Dataset draws from, after the limit cap.
func (ds *Dataset) NumPairs() int { return len(ds.pairs) }

// Yield implements train.Dataset. It returns:
//
//   - spec: the Dataset pointer itself.
//   - inputs: one tensor with the camera frames, shaped `[batch_size, height, width, 3]`
//     (float32, 0 to 255 range).
//   - labels: one tensor with the class masks, shaped `[batch_size, height, width]` (int32).
//
// It returns io.EOF once the pass is exhausted. A missing or corrupt frame
// aborts the batch with the decode error; there is no skip-and-continue.
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	spec = ds
	if ds.position >= len(ds.indices) {
		err = io.EOF
		return
	}
	start := ds.position
	end := min(start+ds.batchSize, len(ds.indices))
	ds.position = end

	numExamples := end - start
	frames := make([]image.Image, 0, numExamples)
	masks := make([]int32, 0, numExamples*ds.height*ds.width)
	for _, idx := range ds.indices[start:end] {
		pair := ds.pairs[idx]
		var frame, label image.Image
		frame, err = ReadImage(pair.Image)
		if err != nil {
			err = errors.WithMessagef(err, "while reading camera frame of pair #%d", idx)
			return
		}
		frames = append(frames, ResizeFrame(frame, ds.width, ds.height))

		label, err = ReadImage(pair.Label)
		if err != nil {
			err = errors.WithMessagef(err, "while reading label frame of pair #%d", idx)
			return
		}
		for _, class := range RemapLabels(resizeLabels(label, ds.width, ds.height)) {
			masks = append(masks, int32(class))
		}
	}

	inputs = []*tensors.Tensor{ds.toTensor.Batch(frames)}
	labels = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(masks, numExamples, ds.height, ds.width)}
	return
}

// Reset implements train.Dataset. It rewinds the pass and, when a shuffle rng
// was given, draws a new permutation of the pair order.
func (ds *Dataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.position = 0
	if ds.indices == nil {
		ds.indices = make([]int, len(ds.pairs))
	}
	for ii := range ds.indices {
		ds.indices[ii] = ii
	}
	if ds.shuffle != nil {
		ds.shuffle.Shuffle(len(ds.indices), func(i, j int) {
			ds.indices[i], ds.indices[j] = ds.indices[j], ds.indices[i]
		})
	}
}
