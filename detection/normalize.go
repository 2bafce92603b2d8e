package detection

import "fmt"

// ImageNetStd is the per-channel standard deviation, in RGB order, that the
// gender classifier was trained with.
var ImageNetStd = [3]float32{0.229, 0.224, 0.225}

// DivideChannels divides each plane of an NCHW blob with a single image by
// the matching std entry, in place.
func DivideChannels(blob []float32, std []float32) error {
	if len(std) == 0 || len(blob)%len(std) != 0 {
		return fmt.Errorf("blob of %d values does not split into %d channels", len(blob), len(std))
	}
	plane := len(blob) / len(std)
	for c, s := range std {
		if s == 0 {
			return fmt.Errorf("zero std for channel %d", c)
		}
		inv := 1 / s
		for i := c * plane; i < (c+1)*plane; i++ {
			blob[i] *= inv
		}
	}
	return nil
}
