// Copyright 2026 The RoadScene Authors. SPDX-License-Identifier: Apache-2.0

// Command semseg prepares the road-scene segmentation project: with --download
// it fetches the pretrained VGG bundle; otherwise it runs one pass over the
// training batches and prints their shapes, which is a quick sanity check of
// the dataset layout. Training and inference drive an execution handle owned
// elsewhere and are out of scope here.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/roadscene/semseg/carla"
	"github.com/roadscene/semseg/internal/fsutil"
	"github.com/roadscene/semseg/vgg"
)

var (
	flagDataDir   = flag.String("data", "~/tmp/carla", "Directory holding the dataset and the downloaded model bundle.")
	flagDownload  = flag.Bool("download", false, "Download the pretrained VGG bundle if missing, then exit.")
	flagBatchSize = flag.Int("batch", 4, "Batch size when iterating the training data.")
	flagLimit     = flag.Int("limit", 10, "Cap on the number of training pairs used; 0 means no cap.")
	flagHeight    = flag.Int("height", 600, "Target frame height.")
	flagWidth     = flag.Int("width", 800, "Target frame width.")
	flagSeed      = flag.Int64("seed", 0, "Shuffle seed; 0 draws one from the clock.")
)

func main() {
	flag.Parse()
	dataDir := fsutil.MustReplaceTildeInDir(*flagDataDir)

	if *flagDownload {
		must.M(vgg.Download(dataDir))
		fmt.Printf("VGG bundle ready under %s\n", dataDir)
		return
	}
	if missing := vgg.MissingBundleFiles(dataDir); len(missing) > 0 {
		klog.Warningf("VGG bundle incomplete under %s (missing %v); run with --download first", dataDir, missing)
	}

	seed := *flagSeed
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	shuffle := rand.New(rand.NewSource(seed))
	ds := must.M1(carla.NewDataset("train", dataDir, *flagHeight, *flagWidth, *flagLimit, *flagBatchSize, shuffle))

	numBatches := 0
	for {
		_, inputs, labels, err := ds.Yield()
		if err == io.EOF {
			break
		}
		must.M(err)
		numBatches++
		fmt.Printf("batch #%d: frames %s, masks %s\n", numBatches, inputs[0].Shape(), labels[0].Shape())
	}
	fmt.Printf("%d batches over %d pairs (seed %d)\n", numBatches, ds.NumPairs(), seed)
}
