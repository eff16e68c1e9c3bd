package scraper

import (
	"fmt"
	"regexp"
)

// PatternMatcher locates data-block windows inside a page's extracted
// texts. A block spans dataLength consecutive texts and is anchored at a
// pattern match sitting textIdx positions into the block.
type PatternMatcher struct {
	pattern    *regexp.Regexp
	textIdx    int
	dataLength int
}

// NewPatternMatcher validates the plug-in's block geometry.
func NewPatternMatcher(pattern *regexp.Regexp, textIdx, dataLength int) (*PatternMatcher, error) {
	if pattern == nil {
		return nil, fmt.Errorf("text pattern is required")
	}
	if dataLength <= 0 {
		return nil, fmt.Errorf("data length must be positive, got %d", dataLength)
	}
	if textIdx < 0 || textIdx >= dataLength {
		return nil, fmt.Errorf("text index %d outside block of length %d", textIdx, dataLength)
	}
	return &PatternMatcher{
		pattern:    pattern,
		textIdx:    textIdx,
		dataLength: dataLength,
	}, nil
}

// Indices returns the positions in texts where the anchor pattern matches.
// Pure: calling it again on the same texts yields the same positions.
func (m *PatternMatcher) Indices(texts []string) []int {
	var indices []int
	for i, text := range texts {
		if m.pattern.MatchString(text) {
			indices = append(indices, i)
		}
	}
	return indices
}

// BlockAt returns the data block anchored at the match position idx, a copy
// of texts[idx-textIdx : idx-textIdx+dataLength]. A window that leaves the
// page bounds is a malformed-page condition and is reported, not dropped.
func (m *PatternMatcher) BlockAt(texts []string, idx int) ([]string, error) {
	start := idx - m.textIdx
	end := start + m.dataLength
	if start < 0 || end > len(texts) {
		return nil, ErrUnexpectedData{
			Err: fmt.Errorf("data block [%d:%d) at match %d leaves page bounds (%d texts)", start, end, idx, len(texts)),
		}
	}
	block := make([]string, m.dataLength)
	copy(block, texts[start:end])
	return block, nil
}
