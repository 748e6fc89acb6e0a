package urlcheck

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Silencer drops diagnostics with the listed IDs for handlers whose name
// matches Glob.
type Silencer struct {
	// Glob is matched against the handler name with path.Match.
	Glob string

	// IDs are qualified diagnostic IDs.
	IDs []string
}

// NewSilencer creates a silencer. IDs may be short ("W002") or qualified.
func NewSilencer(glob string, ids ...string) (Silencer, error) {
	if _, err := path.Match(glob, ""); err != nil {
		return Silencer{}, fmt.Errorf("silencer %q: %w", glob, err)
	}
	s := Silencer{Glob: glob}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		qualified := QualifyID(id)
		if _, ok := codes[qualified]; !ok {
			return Silencer{}, fmt.Errorf("silencer %q: unknown diagnostic %q", glob, id)
		}
		s.IDs = append(s.IDs, qualified)
	}
	return s, nil
}

// Matches reports whether d is silenced. Diagnostics on group entries have
// no handler and are never silenced.
//
// The glob is matched against the full handler name and, for names
// qualified with an import path, against the part after the last slash,
// so "*.View" matches "example.com/app/blog.View".
func (s Silencer) Matches(d Diagnostic) bool {
	handler := d.Handler()
	if handler == "" {
		return false
	}
	listed := false
	for _, id := range s.IDs {
		if id == d.ID {
			listed = true
			break
		}
	}
	if !listed {
		return false
	}
	if ok, _ := path.Match(s.Glob, handler); ok {
		return true
	}
	if i := strings.LastIndex(handler, "/"); i >= 0 {
		ok, _ := path.Match(s.Glob, handler[i+1:])
		return ok
	}
	return false
}

// ParseSilencers builds silencers from a glob → "E003,W002" mapping.
// The result is sorted by glob.
func ParseSilencers(silenced map[string]string) ([]Silencer, error) {
	globs := make([]string, 0, len(silenced))
	for glob := range silenced {
		globs = append(globs, glob)
	}
	sort.Strings(globs)

	silencers := make([]Silencer, 0, len(globs))
	for _, glob := range globs {
		s, err := NewSilencer(glob, strings.Split(silenced[glob], ",")...)
		if err != nil {
			return nil, err
		}
		silencers = append(silencers, s)
	}
	return silencers, nil
}

// Filter returns the diagnostics no silencer matches, in order.
func Filter(diags []Diagnostic, silencers []Silencer) []Diagnostic {
	if len(silencers) == 0 {
		return diags
	}
	kept := diags[:0:0]
	for _, d := range diags {
		silenced := false
		for _, s := range silencers {
			if s.Matches(d) {
				silenced = true
				break
			}
		}
		if !silenced {
			kept = append(kept, d)
		}
	}
	return kept
}
