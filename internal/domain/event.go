package domain

import (
	"context"
	"time"
)

// Originating centers with locally defined ensemble codes.
const (
	CenterNCEP  = 7
	CenterECMWF = 98
)

const (
	// EnsembleTypeUndefined is the code table 4.6 "missing" value.
	EnsembleTypeUndefined = 255

	// MembersUnknown is the missing value for the number of forecasts in the ensemble.
	MembersUnknown = 255

	// NotDerived marks a record that carries no code table 4.7 value.
	NotDerived = -1
)

// EnsembleRecord holds the ensemble fields of one GRIB2 record, already
// decoded from the message by the upstream parser.
type EnsembleRecord struct {
	EnsembleType              int // code table 4.6, EnsembleTypeUndefined when missing
	PerturbationNumber        int
	EnsembleMembers           int // MembersUnknown when missing
	DerivedForecastType       int // code table 4.7, negative when not a derived forecast
	Center                    int
	ProductDefinitionTemplate int
}

// HasEnsembleType reports whether code table 4.6 is set.
func (r EnsembleRecord) HasEnsembleType() bool {
	return r.EnsembleType != EnsembleTypeUndefined
}

// IsDerived reports whether the record is a derived forecast.
func (r EnsembleRecord) IsDerived() bool {
	return r.DerivedForecastType >= 0
}

// GribRecord is the flat JSON document produced by the message parser.
// Optional code table fields are pointers so absence can be told apart from 0.
type GribRecord struct {
	File          string    `json:"file,omitempty"`
	Record        int       `json:"record"`
	SubMessage    int       `json:"submessage,omitempty"`
	Offset        int64     `json:"offset"`
	ReferenceTime time.Time `json:"ref_time"`
	Parameter     string    `json:"parameter"`
	Level         string    `json:"level,omitempty"`
	Forecast      string    `json:"forecast,omitempty"`

	Center              int  `json:"center"`
	PDT                 int  `json:"pdt"`
	EnsembleType        *int `json:"ensemble_type,omitempty"`
	Perturbation        int  `json:"perturbation"`
	EnsembleMembers     *int `json:"ensemble_members,omitempty"`
	DerivedForecastType *int `json:"derived_forecast_type,omitempty"`
}

// Ensemble maps the wire fields onto an EnsembleRecord, substituting the
// GRIB2 missing sentinels for absent values.
func (g GribRecord) Ensemble() EnsembleRecord {
	rec := EnsembleRecord{
		EnsembleType:              EnsembleTypeUndefined,
		PerturbationNumber:        g.Perturbation,
		EnsembleMembers:           MembersUnknown,
		DerivedForecastType:       NotDerived,
		Center:                    g.Center,
		ProductDefinitionTemplate: g.PDT,
	}
	if g.EnsembleType != nil {
		rec.EnsembleType = *g.EnsembleType
	}
	if g.EnsembleMembers != nil {
		rec.EnsembleMembers = *g.EnsembleMembers
	}
	if g.DerivedForecastType != nil {
		rec.DerivedForecastType = *g.DerivedForecastType
	}
	return rec
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// InventoryLine is the enriched inventory entry for one GRIB2 record.
type InventoryLine struct {
	ID            string    `json:"id"`
	File          string    `json:"file,omitempty"`
	Record        int       `json:"record"`
	SubMessage    int       `json:"submessage,omitempty"`
	Offset        int64     `json:"offset"`
	ReferenceTime time.Time `json:"ref_time"`
	Parameter     string    `json:"parameter"`
	Level         string    `json:"level,omitempty"`
	Forecast      string    `json:"forecast,omitempty"`
	Center        int       `json:"center"`
	PDT           int       `json:"pdt"`

	Ensemble        string   `json:"ensemble,omitempty"`
	Labels          []string `json:"labels,omitempty"`
	EnsembleMembers string   `json:"ensemble_members"`
	EnsembleType    *int     `json:"ensemble_type,omitempty"` // after correction
	Corrected       bool     `json:"corrected,omitempty"`
	LabelStyle      string   `json:"label_style"`

	Inventory   string    `json:"inventory"`
	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
