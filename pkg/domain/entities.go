// Package domain defines the registry records, demand values and error kinds
// shared by the model core, the data store and the transport adapters.
package domain

// EntityType identifies the kind of record addressed by a lookup.
type EntityType string

// Entity types used in NotFound errors and log attributes.
const (
	// EntityModel identifies an input-output model.
	EntityModel EntityType = "model"
	// EntitySector identifies an economic sector.
	EntitySector EntityType = "sector"
	// EntityFlow identifies an environmental or resource flow.
	EntityFlow EntityType = "flow"
	// EntityIndicator identifies an impact indicator.
	EntityIndicator EntityType = "indicator"
	// EntityDemand identifies a stored demand scenario.
	EntityDemand EntityType = "demand"
	// EntityMatrix identifies a numeric or DQI matrix.
	EntityMatrix EntityType = "matrix"
)

// ModelInfo describes an admitted model.
type ModelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Sector describes an industry sector in an input-output model. Index is the
// dense 0-based position in every sector-dimensioned matrix.
type Sector struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Flow describes an environmental or resource flow.
type Flow struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory,omitempty"`
	Unit        string `json:"unit"`
	UUID        string `json:"uuid,omitempty"`
}

// Indicator describes an impact indicator derived from flows.
type Indicator struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Name  string `json:"name"`
	Unit  string `json:"unit"`
	Code  string `json:"code"`
	Group string `json:"group,omitempty"`
}

// DemandInfo describes a stored final-demand scenario.
type DemandInfo struct {
	ID       string `json:"id"`
	Year     int    `json:"year,omitempty"`
	Type     string `json:"type,omitempty"`
	System   string `json:"system,omitempty"`
	Location string `json:"location,omitempty"`
}

// DemandEntry is a single final-demand amount. Sector holds the sector id;
// Index may address the sector by position instead when Sector is empty.
type DemandEntry struct {
	Sector string  `json:"sector,omitempty"`
	Index  *int    `json:"index,omitempty"`
	Amount float64 `json:"amount"`
}

// Demand is a named demand scenario with its entries.
type Demand struct {
	Info    DemandInfo    `json:"info"`
	Entries []DemandEntry `json:"entries"`
}

// Indexed is implemented by registry records carrying an id and dense index.
type Indexed interface {
	Key() string
	Position() int
}

// Key returns the sector id.
func (s Sector) Key() string { return s.ID }

// Position returns the sector index.
func (s Sector) Position() int { return s.Index }

// Key returns the flow id.
func (f Flow) Key() string { return f.ID }

// Position returns the flow index.
func (f Flow) Position() int { return f.Index }

// Key returns the indicator id.
func (i Indicator) Key() string { return i.ID }

// Position returns the indicator index.
func (i Indicator) Position() int { return i.Index }
