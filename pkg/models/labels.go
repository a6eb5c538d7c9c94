package models

// NormalizeLabels remaps raw label values so background becomes 0 and the
// remaining labels get consecutive ids in dictionary order. Raw values that
// are not listed fall to background.
func NormalizeLabels(raw *LabelMap, labels LabelSet) (*LabelMap, LabelSet) {
	normalized := make(LabelSet, 0, len(labels))
	remap := make(map[int32]int32, len(labels))
	next := int32(1)
	for _, l := range labels {
		if l.IsBackground() {
			normalized = append(normalized, Label{Name: l.Name, ID: 0})
			remap[l.ID] = 0
			continue
		}
		normalized = append(normalized, Label{Name: l.Name, ID: next})
		remap[l.ID] = next
		next++
	}

	out := NewLabelMap(raw.Shape)
	for i, v := range raw.Data {
		out.Data[i] = remap[v]
	}
	return out, normalized
}
