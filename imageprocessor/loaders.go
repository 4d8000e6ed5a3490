package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"imagededup/logging"

	"gocv.io/x/gocv"
)

// ImageLoader decodes raw file bytes into a BGR (or gray) Mat
type ImageLoader interface {
	Name() string
	Decode(data []byte) (gocv.Mat, error)
}

// OpenCVLoader decodes through OpenCV's codecs
type OpenCVLoader struct{}

func (OpenCVLoader) Name() string { return "opencv" }

func (OpenCVLoader) Decode(data []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), err
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), errors.New("opencv returned an empty image")
	}
	return img, nil
}

// GoImageLoader decodes with the Go image packages and converts to a Mat.
// It catches files OpenCV rejects but the Go decoders accept.
type GoImageLoader struct{}

func (GoImageLoader) Name() string { return "go-image" }

func (GoImageLoader) Decode(data []byte) (gocv.Mat, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), err
	}
	img, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return gocv.NewMat(), err
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), errors.New("converted image is empty")
	}
	return img, nil
}

// ImageLoaderRegistry tries its loaders in registration order
type ImageLoaderRegistry struct {
	loaders []ImageLoader
	mutex   sync.RWMutex
}

// NewImageLoaderRegistry returns a registry with the OpenCV loader first and
// the Go image fallback second
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	r := &ImageLoaderRegistry{}
	r.RegisterLoader(OpenCVLoader{})
	r.RegisterLoader(GoImageLoader{})
	return r
}

// RegisterLoader appends a loader to the chain
func (r *ImageLoaderRegistry) RegisterLoader(loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.loaders = append(r.loaders, loader)
}

// Decode runs data through each loader until one succeeds
func (r *ImageLoaderRegistry) Decode(path string, data []byte) (gocv.Mat, error) {
	r.mutex.RLock()
	loaders := append([]ImageLoader(nil), r.loaders...)
	r.mutex.RUnlock()

	var lastErr error
	for _, loader := range loaders {
		img, err := loader.Decode(data)
		if err == nil {
			return img, nil
		}
		img.Close()
		logging.DebugLog("%s loader could not decode %s: %v", loader.Name(), path, err)
		lastErr = fmt.Errorf("%s: %w", loader.Name(), err)
	}
	return gocv.NewMat(), undecodable(path, lastErr)
}

// LoadImage reads path and decodes it through the registry
func (r *ImageLoaderRegistry) LoadImage(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), unreadable(path, err)
	}
	return r.Decode(path, data)
}

var defaultRegistry = NewImageLoaderRegistry()

// LoadImage loads an image using the default loader chain
func LoadImage(path string) (gocv.Mat, error) {
	return defaultRegistry.LoadImage(path)
}
