package pdu

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// MaxOutletIndex bounds outlet numbers accepted in outlet lists. CyberPower
// ePDUs have at most a few dozen outlets.
const MaxOutletIndex OutletIndex = 128

// ParseOutletList parses a comma separated list of outlet numbers and
// ranges, e.g. "1,3-5". The result is sorted and free of duplicates.
func ParseOutletList(list string) ([]OutletIndex, error) {
	var outlets []OutletIndex
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, found := strings.Cut(part, "-"); found {
			low, err := parseOutlet(lo)
			if err != nil {
				return nil, err
			}
			high, err := parseOutlet(hi)
			if err != nil {
				return nil, err
			}
			if low > high {
				low, high = high, low
			}
			for i := low; i <= high; i++ {
				outlets = append(outlets, i)
			}
			continue
		}
		outlet, err := parseOutlet(part)
		if err != nil {
			return nil, err
		}
		outlets = append(outlets, outlet)
	}
	if len(outlets) == 0 {
		return nil, fmt.Errorf("%w: no outlets in %q", ErrInvalidOutlet, list)
	}

	slices.Sort(outlets)
	return slices.Compact(outlets), nil
}

func parseOutlet(raw string) (OutletIndex, error) {
	i, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidOutlet, raw)
	}
	if i < 1 {
		return 0, fmt.Errorf("%w: %d, outlets are numbered from 1", ErrInvalidOutlet, i)
	}
	if OutletIndex(i) > MaxOutletIndex {
		return 0, fmt.Errorf("%w: %d, the highest outlet is %d", ErrInvalidOutlet, i, MaxOutletIndex)
	}
	return OutletIndex(i), nil
}
