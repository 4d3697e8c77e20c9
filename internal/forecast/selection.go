package forecast

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidSelection is returned for malformed field paths.
var ErrInvalidSelection = errors.New("invalid field selection")

// Selection is a tree of requested field names. A nil child selects the
// whole field (every subfield for objects). An empty Selection selects everything.
type Selection map[string]Selection

// ParseSelection builds a Selection from dotted field paths such as
// "city.name" or "list.main.tempF". Each argument may itself hold a
// comma-separated list; blank entries are ignored.
func ParseSelection(paths ...string) (Selection, error) {
	sel := Selection{}
	for _, raw := range paths {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if err := sel.add(strings.Split(p, ".")); err != nil {
				return nil, fmt.Errorf("%w: %q", err, p)
			}
		}
	}
	return sel, nil
}

func (s Selection) add(segments []string) error {
	node := s
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return fmt.Errorf("%w: empty path segment", ErrInvalidSelection)
		}
		if i == len(segments)-1 {
			node[seg] = nil
			return nil
		}
		child, ok := node[seg]
		if ok && child == nil {
			// Whole field already selected.
			return nil
		}
		if !ok {
			child = Selection{}
			node[seg] = child
		}
		node = child
	}
	return nil
}

// Paths flattens the selection back into sorted dotted paths.
func (s Selection) Paths() []string {
	var out []string
	var walk func(prefix string, sel Selection)
	walk = func(prefix string, sel Selection) {
		for name, child := range sel {
			p := name
			if prefix != "" {
				p = prefix + "." + name
			}
			if len(child) == 0 {
				out = append(out, p)
				continue
			}
			walk(p, child)
		}
	}
	walk("", s)
	sort.Strings(out)
	return out
}
