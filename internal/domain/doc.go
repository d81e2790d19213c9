// Package domain models GRIB2 ensemble metadata and the inventory labels
// derived from it.
//
// # Data Source
//
// Records originate from an upstream GRIB2 message parser that decodes the
// identification section and the Product Definition Template (PDT) of each
// message and publishes the relevant fields as flat JSON to the Kafka source
// topic. This package never touches raw GRIB2 bytes.
//
// # GRIB2 Conventions
//
// Code table 4.6 (type of ensemble forecast):
//
//	0   unperturbed high-resolution control forecast
//	1   unperturbed low-resolution control forecast
//	2   negatively perturbed forecast
//	3   positively perturbed forecast
//	4   multi-model forecast
//	192 perturbed ensemble member (NCEP local use)
//	255 missing
//
// Code table 4.7 (derived forecast) covers ensemble means, spreads and
// percentiles. Codes 2, 3 and 6 describe cluster statistics, except under
// PDT 4.2 and 4.12 where the derived forecast is computed over all members.
// Codes 192-204 are NCEP local use.
//
// Originating centers (common code table C-11): 7 is NCEP, 98 is ECMWF.
//
// Missing values:
//
//	255 is the GRIB2 sentinel for a missing one-octet value. Both the ensemble
//	type and the number of forecasts in the ensemble use it. A record that is
//	not a derived forecast carries no code table 4.7 value at all; it is
//	represented by a negative code.
//
// # ECMWF Ensemble Quirk
//
// ECMWF ensemble products are encoded with code table 4.6 missing even though
// the number of members and perturbation number are set. ECMWF only produces
// low-resolution controls and positively perturbed members, so the type is
// restored from the perturbation number (0 -> control, else positive). See
// [CorrectEnsembleType].
//
// # ID Generation
//
// Inventory IDs are deterministic SHA-256 hashes of the record's identity
// fields so replays produce identical sink keys. See [generateID].
package domain
