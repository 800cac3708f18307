package prefs

// Font identifies one of the body fonts the reading surface can render.
type Font string

const (
	FontInter        Font = "inter"
	FontIBMPlex      Font = "ibm-plex"
	FontAtkinson     Font = "atkinson"
	FontOpenDyslexic Font = "open-dyslexic"
)

// DefaultFont is the font of a fresh, unsynchronized session.
//
// FallbackFont is applied when the remote service returns a preference
// document without a usable bodyFont. The two are intentionally different:
// an unauthenticated session and a synced-but-incomplete account are
// distinct states and keep their original defaults.
const (
	DefaultFont  = FontInter
	FallbackFont = FontIBMPlex
)

// Key names a preference field on the wire.
type Key string

const (
	KeyBionicReading Key = "bionicReading"
	KeyBodyFont      Key = "bodyFont"
)

// Fonts returns all known font identifiers in stable order.
func Fonts() []Font {
	return []Font{FontInter, FontIBMPlex, FontAtkinson, FontOpenDyslexic}
}

// ParseFont maps a wire identifier to a Font. ok is false for anything
// outside the closed set, including the empty string.
func ParseFont(s string) (Font, bool) {
	switch Font(s) {
	case FontInter, FontIBMPlex, FontAtkinson, FontOpenDyslexic:
		return Font(s), true
	}
	return "", false
}

// Set is a complete preference snapshot. Every field always holds a valid
// value; there is no partial state.
type Set struct {
	BionicReading bool `json:"bionicReading"`
	BodyFont      Font `json:"bodyFont"`
}

// Defaults returns the preference values of a session that has never synced.
func Defaults() Set {
	return Set{
		BionicReading: false,
		BodyFont:      DefaultFont,
	}
}
