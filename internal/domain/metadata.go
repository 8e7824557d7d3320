package domain

import "unicode"

// MetadataEntry is one key/value pair of process metadata.
type MetadataEntry struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

// Computed root-level fields that metadata references (KEY=@REF) may name
// in addition to stored metadata keys.
const (
	// FieldProcessTitle resolves to the process title.
	FieldProcessTitle = "processtitle"

	// FieldTSLATS resolves to the title-derived signature: the first four
	// letters or digits of the process title.
	FieldTSLATS = "TSL_ATS"
)

// MetadataValue returns the value of the first entry with the given key.
func (p *Process) MetadataValue(key string) (string, bool) {
	for _, e := range p.Metadata {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// ResolveField returns the value of a stored metadata key or, if the
// process has no such entry, of a computed root-level field.
func (p *Process) ResolveField(name string) (string, bool) {
	if v, ok := p.MetadataValue(name); ok {
		return v, true
	}
	switch name {
	case FieldProcessTitle:
		return p.Title, p.Title != ""
	case FieldTSLATS:
		sig := TitleSignature(p.Title)
		return sig, sig != ""
	}
	return "", false
}

// AddMetadata appends an entry. Existing entries with the same key are kept.
func (p *Process) AddMetadata(key, value string) {
	p.Metadata = append(p.Metadata, MetadataEntry{Key: key, Value: value})
}

// DeleteMetadata removes entries with the key; when value is non-nil only
// entries with that value are removed. It returns the number removed.
func (p *Process) DeleteMetadata(key string, value *string) int {
	kept := p.Metadata[:0]
	removed := 0
	for _, e := range p.Metadata {
		if e.Key == key && (value == nil || e.Value == *value) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	p.Metadata = kept
	return removed
}

// OverwriteMetadata sets the value of every entry with the key, appending
// a new entry when there is none. It returns the number of entries changed.
func (p *Process) OverwriteMetadata(key, value string) int {
	changed := 0
	for i := range p.Metadata {
		if p.Metadata[i].Key == key {
			p.Metadata[i].Value = value
			changed++
		}
	}
	if changed == 0 {
		p.AddMetadata(key, value)
		changed = 1
	}
	return changed
}

// TitleSignature returns the first four letters or digits of title.
func TitleSignature(title string) string {
	out := make([]rune, 0, 4)
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
			if len(out) == 4 {
				break
			}
		}
	}
	return string(out)
}
