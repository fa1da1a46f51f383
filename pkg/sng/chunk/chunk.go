// Package chunk defines the SNG chunk-type vocabulary
package chunk

// Type identifies a chunk type in the SNG grammar.
type Type int

// The PNG 1.0 chunks, in the order of the summary table in section 4.3
// of the PNG specification, followed by the PNG 1.2 special-purpose
// chunks. IEND is absent because it never appears in an SNG source.
// IMAGE and Private are grammar-only pseudo-chunks.
const (
	IHDR Type = iota
	PLTE
	IDAT
	CHRM
	GAMA
	ICCP
	SBIT
	SRGB
	BKGD
	HIST
	TRNS
	PHYS
	SPLT
	TIME
	ITXT
	TEXT
	ZTXT
	OFFS
	PCAL
	SCAL
	GIFG
	GIFT
	GIFX
	FRAC
	IMAGE
	Private

	numTypes
)

// None marks "no chunk dispatched yet" for ordering rules.
const None Type = -1

type props struct {
	name       string
	multipleOK bool
}

var properties = [numTypes]props{
	IHDR:    {"IHDR", false},
	PLTE:    {"PLTE", false},
	IDAT:    {"IDAT", true},
	CHRM:    {"cHRM", false},
	GAMA:    {"gAMA", false},
	ICCP:    {"iCCP", false},
	SBIT:    {"sBIT", false},
	SRGB:    {"sRGB", false},
	BKGD:    {"bKGD", false},
	HIST:    {"hIST", false},
	TRNS:    {"tRNS", false},
	PHYS:    {"pHYs", false},
	SPLT:    {"sPLT", true},
	TIME:    {"tIME", false},
	ITXT:    {"iTXt", true},
	TEXT:    {"tEXt", true},
	ZTXT:    {"zTXt", true},
	OFFS:    {"oFFs", false},
	PCAL:    {"pCAL", false},
	SCAL:    {"sCAL", false},
	GIFG:    {"gIFg", false},
	GIFT:    {"gIFt", false},
	GIFX:    {"gIFx", false},
	FRAC:    {"fRAc", false},
	IMAGE:   {"IMAGE", false},
	Private: {"private", true},
}

// Name returns the keyword that selects this chunk type in SNG source.
func (t Type) Name() string {
	if t < 0 || t >= numTypes {
		return "?"
	}
	return properties[t].name
}

// MultipleOK reports whether more than one chunk of this type may appear.
func (t Type) MultipleOK() bool {
	return properties[t].multipleOK
}

// Vocabulary tracks per-compile occurrence counts over the chunk-type
// table. Each compile owns its own instance; counts are never shared.
type Vocabulary struct {
	counts [numTypes]int
}

// NewVocabulary returns a fresh vocabulary with all counts zero.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{}
}

// Lookup resolves a keyword token to its chunk type.
func (v *Vocabulary) Lookup(keyword string) (Type, bool) {
	for t := Type(0); t < numTypes; t++ {
		if properties[t].name == keyword {
			return t, true
		}
	}
	return None, false
}

// Count returns how many chunks of this type have been dispatched.
func (v *Vocabulary) Count(t Type) int {
	return v.counts[t]
}

// Seen reports whether at least one chunk of this type has been dispatched.
func (v *Vocabulary) Seen(t Type) bool {
	return v.counts[t] > 0
}

// Mark records one dispatched chunk of this type.
func (v *Vocabulary) Mark(t Type) {
	v.counts[t]++
}
