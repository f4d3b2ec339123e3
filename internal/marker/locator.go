package marker

import (
	"fmt"
	"strconv"
	"strings"
)

// Dictionary describes the marker family a locator detects. Names follow
// the DICT_<SIZE>X<SIZE>_<COUNT> convention, e.g. "DICT_4X4_50" is the
// 4x4-bit family with 50 ids.
type Dictionary struct {
	Name string `json:"name"`
	Bits int    `json:"bits"`  // marker grid size (4, 5, 6, 7)
	Size int    `json:"count"` // number of ids in the family
}

// ParseDictionary extracts grid size and id count from a dictionary name.
func ParseDictionary(name string) (Dictionary, error) {
	parts := strings.Split(name, "_")
	if len(parts) != 3 || parts[0] != "DICT" {
		return Dictionary{}, fmt.Errorf("malformed dictionary name %q", name)
	}
	dims := strings.SplitN(parts[1], "X", 2)
	if len(dims) != 2 || dims[0] != dims[1] {
		return Dictionary{}, fmt.Errorf("malformed dictionary size in %q", name)
	}
	bits, err := strconv.Atoi(dims[0])
	if err != nil {
		return Dictionary{}, fmt.Errorf("malformed dictionary size in %q: %w", name, err)
	}
	count, err := strconv.Atoi(parts[2])
	if err != nil {
		return Dictionary{}, fmt.Errorf("malformed dictionary count in %q: %w", name, err)
	}
	return Dictionary{Name: name, Bits: bits, Size: count}, nil
}

// ScriptedLocator replays pre-recorded marker sets, one entry per Locate
// call, cycling when the script is exhausted. It stands in for the real
// detector in dev mode and tests.
type ScriptedLocator struct {
	ticks [][]RawMarker
	next  int
	err   error
}

// NewScriptedLocator builds a locator that replays the given per-tick
// marker sets. A nil or empty script yields zero markers forever.
func NewScriptedLocator(ticks [][]RawMarker) *ScriptedLocator {
	return &ScriptedLocator{ticks: ticks}
}

// FailWith makes every subsequent Locate call return err until reset with
// FailWith(nil). Used to exercise the detection-error degradation path.
func (l *ScriptedLocator) FailWith(err error) {
	l.err = err
}

// Locate returns the next scripted marker set.
func (l *ScriptedLocator) Locate(pixels []byte, width, height int) ([]RawMarker, error) {
	if l.err != nil {
		return nil, l.err
	}
	if len(l.ticks) == 0 {
		return nil, nil
	}
	out := l.ticks[l.next%len(l.ticks)]
	l.next++
	return out, nil
}
