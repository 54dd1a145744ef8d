// make-test-dataset writes a synthetic dataset laid out like
// TotalSegmentator: <out>/<case>/segmentations/<label>.nii.gz, each label
// volume holding one or more ellipsoids.
//
// Every -missing-th case gets no segmentation files so that a batch run
// exercises the "doesn't have segmentation" path.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gmlewis/segmesh/config"
	"github.com/gmlewis/segmesh/nifti"
)

var (
	out     = flag.String("out", "Totalsegmentator_dataset", "Output dataset directory")
	cases   = flag.Int("cases", 5, "Number of cases")
	labels  = flag.String("labels", "heart,liver", "Comma-separated labels to write per case")
	size    = flag.Int("size", 48, "Volume size in voxels along each axis")
	spacing = flag.Float64("spacing", 1.5, "Voxel spacing in millimeters")
	blobs   = flag.Int("blobs", 1, "Ellipsoids per label volume, each with its own label value")
	missing = flag.Int("missing", 0, "Leave out the segmentations of every n-th case (0 for none)")
	seed    = flag.Int64("seed", 1, "Random seed")
)

var logger = config.NewLogger(os.Stderr, "info")

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	for c := 1; c <= *cases; c++ {
		id := fmt.Sprintf("s%04d", c)
		dir := filepath.Join(*out, id, "segmentations")
		check("MkdirAll: %v", os.MkdirAll(dir, 0755))
		if *missing > 0 && c%*missing == 0 {
			logger.Info().Msgf("Leaving %v without segmentations", id)
			continue
		}

		for _, label := range strings.Split(*labels, ",") {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			v := volume(rng)
			filename := filepath.Join(dir, label+".nii.gz")
			logger.Info().Msgf("Writing: %v", filename)
			check("nifti.WriteFile: %v", nifti.WriteFile(filename, v))
		}
	}

	logger.Info().Msg("Done.")
}

// volume returns a label volume with *blobs random ellipsoids labeled 1..n.
func volume(rng *rand.Rand) *nifti.Volume {
	n := *size
	half := float64(n) * *spacing / 2
	v := nifti.New([3]int{n, n, n}, [3]float64{*spacing, *spacing, *spacing}, [3]float64{-half, -half, -half})

	for b := 1; b <= *blobs; b++ {
		var center, radii [3]float64
		for i := range center {
			radii[i] = float64(n) * (0.08 + 0.1*rng.Float64())
			center[i] = radii[i] + 1 + rng.Float64()*(float64(n)-2*radii[i]-2)
		}
		for k := 0; k < n; k++ {
			for j := 0; j < n; j++ {
				for i := 0; i < n; i++ {
					d := sq((float64(i)-center[0])/radii[0]) +
						sq((float64(j)-center[1])/radii[1]) +
						sq((float64(k)-center[2])/radii[2])
					if d <= 1 {
						v.Set(i, j, k, int32(b))
					}
				}
			}
		}
	}
	return v
}

func sq(x float64) float64 { return math.Pow(x, 2) }

func check(fmtStr string, args ...interface{}) {
	if err := args[len(args)-1]; err != nil {
		logger.WithLevel(zerolog.FatalLevel).Msgf(fmtStr, args...)
		os.Exit(1)
	}
}
