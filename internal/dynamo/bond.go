package dynamo

// Bond is a Hookean spring between beads I and J. MaxLength > 0 enables
// rupture when the bond is stretched beyond it.
type Bond struct {
	Type      int     `json:"type"`
	I         int     `json:"i"`
	J         int     `json:"j"`
	Spring    float64 `json:"spring"`
	Length    float64 `json:"length"`
	MaxLength float64 `json:"max_length,omitempty"`
	Active    bool    `json:"active"`
}

// BondPair is a bending constraint over beads I-J-K where J is shared by the
// two adjacent bonds. Angle is the preferred angle between the bond vectors
// J-I and K-J, so zero means a straight chain.
type BondPair struct {
	Type    int     `json:"type"`
	I       int     `json:"i"`
	J       int     `json:"j"`
	K       int     `json:"k"`
	Modulus float64 `json:"modulus"`
	Angle   float64 `json:"angle"`
	Active  bool    `json:"active"`
}

// Polymer is a named chain of bead indices.
type Polymer struct {
	Type  int    `json:"type"`
	Name  string `json:"name"`
	Beads []int  `json:"beads"`
}
