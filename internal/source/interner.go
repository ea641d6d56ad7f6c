package source

// StringID is an interned string handle. NoStringID maps to "".
type StringID uint32

const NoStringID StringID = 0

// Interner deduplicates identifier strings so the rest of the compiler can
// pass around 4-byte handles.
type Interner struct {
	byID  []string
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}

// Intern returns the ID for s, allocating one on first sight.
func (i *Interner) Intern(s string) StringID {
	if id, ok := i.index[s]; ok {
		return id
	}

	// Copy so the interner does not pin the caller's backing buffer.
	cpy := string([]byte(s))
	id := StringID(len(i.byID)) //nolint:gosec // practical intern counts fit uint32
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// InternBytes is Intern for a byte slice.
func (i *Interner) InternBytes(b []byte) StringID {
	if id, ok := i.index[string(b)]; ok {
		return id
	}
	return i.Intern(string(b))
}

// Lookup resolves an ID back to its string. Unknown IDs yield "".
func (i *Interner) Lookup(id StringID) string {
	if int(id) >= len(i.byID) {
		return ""
	}
	return i.byID[id]
}

// Len returns the number of interned strings, including the empty string.
func (i *Interner) Len() int {
	return len(i.byID)
}
