package annotator

import "gocv.io/x/gocv"

// Sampler keeps one annotated frame, the one at Index, as a JPEG still.
type Sampler struct {
	Index int
	still []byte
}

// Offer encodes frame when index is the sampled position. Other frames are ignored.
func (s *Sampler) Offer(index int, frame gocv.Mat) error {
	if index != s.Index || s.still != nil {
		return nil
	}
	still, err := EncodeJPEG(frame)
	if err != nil {
		return err
	}
	s.still = still
	return nil
}

// Still returns the captured JPEG, or nil when the video was shorter than Index+1 frames.
func (s *Sampler) Still() []byte {
	return s.still
}
