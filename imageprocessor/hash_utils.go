package imageprocessor

import (
	"errors"
	"image"

	"imagededup/types"

	"gocv.io/x/gocv"
)

const (
	hashSide = 8
	// Images larger than this are first area-averaged down to it so the
	// Lanczos pass samples a smoothed grid instead of eight scattered pixels.
	preshrinkSide = 64
)

// ComputeAverageHash resamples img to 8x8 with Lanczos, converts it to
// luminance and sets one bit per sample brighter than the grid mean.
func ComputeAverageHash(img gocv.Mat) (types.PerceptualHash, error) {
	if img.Empty() {
		return 0, errors.New("cannot compute hash for empty image")
	}

	src := img
	if img.Cols() > preshrinkSide || img.Rows() > preshrinkSide {
		shrunk := gocv.NewMat()
		defer shrunk.Close()
		w, h := min(img.Cols(), preshrinkSide), min(img.Rows(), preshrinkSide)
		gocv.Resize(img, &shrunk, image.Point{X: w, Y: h}, 0, 0, gocv.InterpolationArea)
		src = shrunk
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Point{X: hashSide, Y: hashSide}, 0, 0, gocv.InterpolationLanczos4)

	gray := gocv.NewMat()
	defer gray.Close()
	switch resized.Channels() {
	case 1:
		resized.CopyTo(&gray)
	case 4:
		gocv.CvtColor(resized, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(resized, &gray, gocv.ColorBGRToGray)
	}

	var samples [hashSide * hashSide]uint8
	var sum uint64
	for y := 0; y < hashSide; y++ {
		for x := 0; x < hashSide; x++ {
			v := gray.GetUCharAt(y, x)
			samples[y*hashSide+x] = v
			sum += uint64(v)
		}
	}
	mean := float64(sum) / float64(len(samples))

	var hash uint64
	for _, v := range samples {
		hash <<= 1
		if float64(v) > mean {
			hash |= 1
		}
	}
	return types.PerceptualHash(hash), nil
}

// PerceptualDigest decodes the image at path and returns its average hash.
// Errors wrap ErrUnreadable or ErrUndecodable.
func PerceptualDigest(path string) (types.PerceptualHash, error) {
	img, err := LoadImage(path)
	if err != nil {
		return 0, err
	}
	defer img.Close()

	hash, err := ComputeAverageHash(img)
	if err != nil {
		return 0, undecodable(path, err)
	}
	return hash, nil
}
