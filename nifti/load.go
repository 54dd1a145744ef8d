package nifti

import (
	nii "github.com/KyungWonPark/nifti"
	"github.com/pkg/errors"
)

// loadImage loads the voxel data of filename, turning the panics the nifti
// library raises on malformed input into errors.
func loadImage(filename string) (img *nii.Nifti1Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, errors.Errorf("load image: %v", p)
		}
	}()

	img = &nii.Nifti1Image{}
	img.LoadImage(filename, true)
	return img, nil
}
