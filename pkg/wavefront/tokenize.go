package wavefront

// Tokenizer splits directive lines into fields. The returned slices alias the
// tokenizer's internal buffers and are only valid until the next call, so a
// single Tokenizer can be reused for every line of a file without allocating.
type Tokenizer struct {
	fields  []string
	offsets []int
}

// Split splits s on delim. Empty fields between adjacent delimiters are
// dropped unless keepEmpty is set.
func (t *Tokenizer) Split(s string, delim byte, keepEmpty bool) []string {
	t.fields = Split(t.fields, s, delim, keepEmpty)
	return t.fields
}

// Fields splits s on spaces and tabs, dropping empty fields.
func (t *Tokenizer) Fields(s string) []string {
	t.fields, t.offsets = splitFunc(t.fields[:0], t.offsets[:0], s, isBlank, false, false)
	return t.fields
}

// FieldsOffsets is Fields that also reports the byte offset of each field in s.
func (t *Tokenizer) FieldsOffsets(s string) ([]string, []int) {
	t.fields, t.offsets = splitFunc(t.fields[:0], t.offsets[:0], s, isBlank, false, true)
	return t.fields, t.offsets
}

// Split appends the fields of s separated by delim to dst[:0] and returns it.
func Split(dst []string, s string, delim byte, keepEmpty bool) []string {
	dst, _ = splitFunc(dst[:0], nil, s, func(c byte) bool { return c == delim }, keepEmpty, false)
	return dst
}

// SplitOffsets is Split that also fills offsets with the starting byte
// offset of every field.
func SplitOffsets(dst []string, offsets []int, s string, delim byte, keepEmpty bool) ([]string, []int) {
	return splitFunc(dst[:0], offsets[:0], s, func(c byte) bool { return c == delim }, keepEmpty, true)
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// splitFunc scans s once. With keepEmpty, a delimiter that closes an empty
// field emits "", which keeps the texcoord slot in a "1//3" face corner.
// A trailing delimiter never emits a trailing empty field.
func splitFunc(dst []string, offsets []int, s string, isDelim func(byte) bool, keepEmpty, withOffsets bool) ([]string, []int) {
	start := 0
	for i := 0; i < len(s); i++ {
		if !isDelim(s[i]) {
			continue
		}
		if i > start || keepEmpty {
			dst = append(dst, s[start:i])
			if withOffsets {
				offsets = append(offsets, start)
			}
		}
		start = i + 1
	}
	if start < len(s) {
		dst = append(dst, s[start:])
		if withOffsets {
			offsets = append(offsets, start)
		}
	}
	return dst, offsets
}
