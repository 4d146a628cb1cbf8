package core

import "useeio/pkg/domain"

type (
	EntityType  = domain.EntityType
	ModelInfo   = domain.ModelInfo
	Sector      = domain.Sector
	Flow        = domain.Flow
	Indicator   = domain.Indicator
	DemandInfo  = domain.DemandInfo
	DemandEntry = domain.DemandEntry
	Demand      = domain.Demand
)

const (
	EntityModel     = domain.EntityModel
	EntitySector    = domain.EntitySector
	EntityFlow      = domain.EntityFlow
	EntityIndicator = domain.EntityIndicator
	EntityDemand    = domain.EntityDemand
	EntityMatrix    = domain.EntityMatrix
)
