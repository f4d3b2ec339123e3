package marker

// FrameSampler copies the current source frame into a reusable capture
// surface. The surface is resized only when the source dimensions change,
// so steady-state sampling does not allocate.
type FrameSampler struct {
	surface []byte
	width   int
	height  int
}

// NewFrameSampler returns an empty sampler; the surface is sized lazily on
// the first successful Sample.
func NewFrameSampler() *FrameSampler {
	return &FrameSampler{}
}

// Sample captures the source's current frame. It returns ErrFrameNotReady
// when the source reports zero width or height or a short pixel buffer.
// The returned Frame aliases the internal surface and is valid until the
// next Sample or Release call.
func (s *FrameSampler) Sample(src FrameSource) (Frame, error) {
	pixels, width, height := src.Frame()
	if width <= 0 || height <= 0 {
		return Frame{}, ErrFrameNotReady
	}
	need := width * height * 4
	if len(pixels) < need {
		return Frame{}, ErrFrameNotReady
	}

	if width != s.width || height != s.height {
		s.surface = make([]byte, need)
		s.width = width
		s.height = height
	}
	copy(s.surface, pixels[:need])

	return Frame{Pixels: s.surface, Width: width, Height: height}, nil
}

// Release drops the capture surface. Safe to call repeatedly.
func (s *FrameSampler) Release() {
	s.surface = nil
	s.width = 0
	s.height = 0
}
