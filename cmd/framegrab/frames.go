package main

import (
	"fmt"
	"strconv"
	"strings"
)

// maxRange bounds a single "a-b" range so a typo cannot queue millions of requests.
const maxRange = 100000

// parseFrames parses a list such as "0,30,100-110" in the given order.
func parseFrames(s string) ([]int, error) {
	var frames []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			n, err := parseFrame(part)
			if err != nil {
				return nil, err
			}
			frames = append(frames, n)
			continue
		}

		first, err := parseFrame(lo)
		if err != nil {
			return nil, err
		}
		last, err := parseFrame(hi)
		if err != nil {
			return nil, err
		}
		if last < first {
			return nil, fmt.Errorf("invalid frame range %q", part)
		}
		if last-first >= maxRange {
			return nil, fmt.Errorf("frame range %q exceeds %d frames", part, maxRange)
		}
		for n := first; n <= last; n++ {
			frames = append(frames, n)
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frame numbers in %q", s)
	}
	return frames, nil
}

func parseFrame(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid frame number %q", s)
	}
	return n, nil
}
