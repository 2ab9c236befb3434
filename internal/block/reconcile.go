package block

// Reconcile merges label-keyed edits into original and returns the new
// modified sequence. Order and membership follow original exactly: an edited
// block keeps its label and tag and takes the edit as its content (or src, for
// images); every other block is carried over unchanged. Edits naming labels
// that do not exist in original are ignored.
//
// Reconcile is pure. Callers are responsible for rejecting empty edits before
// touching the store.
func Reconcile(original Blocks, edits map[string]string) Blocks {
	out := make(Blocks, 0, len(original))
	for _, b := range original {
		if v, ok := edits[b.BlockLabel()]; ok {
			out = append(out, b.WithValue(v))
			continue
		}
		out = append(out, b)
	}
	return out
}

// UnknownLabels returns the edit labels that do not name a block in original,
// in the order they first appear in labels.
func UnknownLabels(original Blocks, labels []string) []string {
	known := make(map[string]bool, len(original))
	for _, b := range original {
		known[b.BlockLabel()] = true
	}

	var unknown []string
	for _, l := range labels {
		if !known[l] {
			unknown = append(unknown, l)
		}
	}
	return unknown
}
