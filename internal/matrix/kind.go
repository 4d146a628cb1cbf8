// Package matrix holds the dense numeric and data-quality matrices of an
// input-output model together with the closed set of matrix kinds, the
// row/column projection rules and the on-disk codecs.
package matrix

// Dimension names the registry that indexes one axis of a matrix.
type Dimension int

// Registry dimensions.
const (
	DimSector Dimension = iota + 1
	DimFlow
	DimIndicator
)

func (d Dimension) String() string {
	switch d {
	case DimSector:
		return "sector"
	case DimFlow:
		return "flow"
	case DimIndicator:
		return "indicator"
	default:
		return "unknown"
	}
}

// Kind enumerates the matrices a model may carry.
type Kind int

// Numeric matrix kinds followed by their data-quality counterparts.
const (
	A Kind = iota + 1 // direct requirements, sector x sector
	B                 // satellite flows per unit output, flow x sector
	C                 // characterization factors, indicator x flow
	D                 // direct impacts per unit output, indicator x sector
	L                 // Leontief total requirements, sector x sector
	U                 // total impacts per unit final demand, indicator x sector
	BDQI
	DDQI
	UDQI
)

var kindNames = map[Kind]string{
	A:    "A",
	B:    "B",
	C:    "C",
	D:    "D",
	L:    "L",
	U:    "U",
	BDQI: "B_dqi",
	DDQI: "D_dqi",
	UDQI: "U_dqi",
}

var kindsByName = func() map[string]Kind {
	out := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		out[name] = k
	}
	return out
}()

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a matrix name. Names are case-sensitive.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// NumericKinds lists the numeric kinds in canonical order.
func NumericKinds() []Kind { return []Kind{A, B, C, D, L, U} }

// DQIKinds lists the data-quality kinds in canonical order.
func DQIKinds() []Kind { return []Kind{BDQI, DDQI, UDQI} }

// IsDQI reports whether k names a data-quality matrix.
func (k Kind) IsDQI() bool {
	switch k {
	case BDQI, DDQI, UDQI:
		return true
	default:
		return false
	}
}

// Numeric returns the numeric partner of a DQI kind, or k itself.
func (k Kind) Numeric() Kind {
	switch k {
	case BDQI:
		return B
	case DDQI:
		return D
	case UDQI:
		return U
	default:
		return k
	}
}

// DQI returns the data-quality partner of a numeric kind.
func (k Kind) DQI() (Kind, bool) {
	switch k {
	case B:
		return BDQI, true
	case D:
		return DDQI, true
	case U:
		return UDQI, true
	default:
		return 0, false
	}
}

// Axes returns the row and column dimensions of the kind.
func (k Kind) Axes() (rows, cols Dimension) {
	switch k.Numeric() {
	case A, L:
		return DimSector, DimSector
	case B:
		return DimFlow, DimSector
	case C:
		return DimIndicator, DimFlow
	case D, U:
		return DimIndicator, DimSector
	default:
		return 0, 0
	}
}

// Cardinalities reports the registry sizes used to validate shapes.
type Cardinalities struct {
	Sectors    int
	Flows      int
	Indicators int
}

// Of returns the cardinality of a dimension.
func (c Cardinalities) Of(d Dimension) int {
	switch d {
	case DimSector:
		return c.Sectors
	case DimFlow:
		return c.Flows
	case DimIndicator:
		return c.Indicators
	default:
		return -1
	}
}

// Shape returns the expected rows and columns of kind k.
func (c Cardinalities) Shape(k Kind) (rows, cols int) {
	r, col := k.Axes()
	return c.Of(r), c.Of(col)
}
