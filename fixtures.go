package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/banshee-data/marker.anchor/internal/marker"
)

// FixtureFile is a scripted detection session for dev mode: frame
// dimensions plus the marker set the locator reports on each detection
// tick. The script cycles when exhausted.
type FixtureFile struct {
	Width  int                `json:"width"`
	Height int                `json:"height"`
	Ticks  [][]marker.RawMarker `json:"ticks"`
}

// LoadFixtures parses a fixture file and validates its dimensions.
func LoadFixtures(path string) (*FixtureFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f FixtureFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("fixtures must set positive width and height, got %dx%d", f.Width, f.Height)
	}
	return &f, nil
}

// SyntheticFrameSource serves a fixed-size blank frame; the scripted
// locator supplies the detections, so pixel content is irrelevant.
type SyntheticFrameSource struct {
	pixels []byte
	width  int
	height int
}

// NewSyntheticFrameSource allocates a blank RGBA frame of the given size.
func NewSyntheticFrameSource(width, height int) *SyntheticFrameSource {
	return &SyntheticFrameSource{
		pixels: make([]byte, width*height*4),
		width:  width,
		height: height,
	}
}

// Frame returns the synthetic frame buffer.
func (s *SyntheticFrameSource) Frame() ([]byte, int, int) {
	return s.pixels, s.width, s.height
}
