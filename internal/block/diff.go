package block

// SelectChanged returns the modified blocks whose value is non-empty and
// differs from the original block with the same label. Output follows the
// order of original. Originals without a modified counterpart are skipped,
// as are counterparts whose kind (text vs image) no longer matches.
func SelectChanged(original, modified Blocks) Blocks {
	byLabel := make(map[string]Block, len(modified))
	for _, m := range modified {
		byLabel[m.BlockLabel()] = m
	}

	changed := Blocks{}
	for _, o := range original {
		m, ok := byLabel[o.BlockLabel()]
		if !ok {
			continue
		}
		if IsImage(o) != IsImage(m) {
			continue
		}
		if v := m.Value(); v != "" && v != o.Value() {
			changed = append(changed, m)
		}
	}
	return changed
}
