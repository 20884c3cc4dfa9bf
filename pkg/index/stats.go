package index

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Stats summarizes the index layout.
type Stats struct {
	Strings  int // vocabulary entries
	Classes  int // populated size classes
	MaxSize  int // largest size class
	Features int // distinct (size, feature) keys
	Postings int // total sids across all lists
}

// Stats walks every size class and counts its lists.
func (idx *Index) Stats() Stats {
	st := Stats{
		Strings: len(idx.vocabulary),
		MaxSize: len(idx.classes),
	}
	for _, class := range idx.classes {
		if class == nil {
			continue
		}
		st.Classes++
		st.Features += len(class)
		for _, ids := range class {
			st.Postings += len(ids)
		}
	}
	return st
}

// Map converts Stats to the flat form used by server responses.
func (st Stats) Map() map[string]int {
	return map[string]int{
		"strings":  st.Strings,
		"classes":  st.Classes,
		"maxSize":  st.MaxSize,
		"features": st.Features,
		"postings": st.Postings,
	}
}

// Dump writes the vocabulary and every populated size class to w.
// Features are listed in sorted order; padding runes are quoted.
func (idx *Index) Dump(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Vocabulary:\t")
	b.WriteString(strings.Join(idx.vocabulary, ", "))
	b.WriteString("\nInverted list:\n")

	for i, class := range idx.classes {
		if class == nil {
			continue
		}
		fmt.Fprintf(&b, "Word size %d\n", i+1)
		features := make([]string, 0, len(class))
		for f := range class {
			features = append(features, f)
		}
		sort.Strings(features)
		for _, f := range features {
			fmt.Fprintf(&b, "%q --> %v\n", f, class[f])
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
