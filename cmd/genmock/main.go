// Command genmock writes a deterministic JSON-lines fixture of GRIB record
// documents covering the ensemble layouts the inventory service sees in
// practice: an ECMWF ENS run with code table 4.6 missing, NCEP GEFS control
// and perturbed members, SREF members with the NCEP local type 192, and
// derived products under PDT 4.2, 4.4 and 4.12. It can also write the
// expected inventory produced by the domain package for the same records.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/ens_records_20240426.jsonl \
//	  -inventory-out data/mock/ens_inventory_20240426.txt \
//	  -style wgrib2
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/grib-ensemble-inventory/internal/domain"
)

var baseDate = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the GRIB record fixture (JSON lines)")
	invOut := flag.String("inventory-out", "", "optional output path for the expected inventory")
	styleName := flag.String("style", string(domain.StyleDescriptive), "label style for -inventory-out")
	ecmwfMembers := flag.Int("ecmwf-members", 50, "perturbed ECMWF members (plus one control)")
	gefsMembers := flag.Int("gefs-members", 30, "perturbed GEFS members (plus one control)")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	style, err := domain.ParseLabelStyle(*styleName)
	if err != nil {
		return err
	}

	records := generate(*ecmwfMembers, *gefsMembers)
	if err := writeLines(*out, records, func(w io.Writer, rec domain.GribRecord) error {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d records: %s", len(records), *out)

	if *invOut == "" {
		return nil
	}

	// Fixed clock and a silent decoder keep the expected inventory reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.Add(6 * time.Hour)))
	defer domain.SetClock(nil)
	decoder := domain.NewDecoder(style, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := writeLines(*invOut, records, func(w io.Writer, rec domain.GribRecord) error {
		line, _ := domain.BuildInventoryLine(decoder, rec)
		_, err := fmt.Fprintln(w, line.Inventory)
		return err
	}); err != nil {
		return fmt.Errorf("writing inventory: %w", err)
	}
	log.Printf("wrote inventory (%s style, %d corrections): %s", style, decoder.Corrections(), *invOut)
	return nil
}

func generate(ecmwfMembers, gefsMembers int) []domain.GribRecord {
	var recs []domain.GribRecord
	add := func(rec domain.GribRecord) {
		rec.Record = len(recs) + 1
		rec.ReferenceTime = baseDate
		recs = append(recs, rec)
	}

	// ECMWF ENS: control plus perturbed members, code table 4.6 left missing.
	ecmwfTotal := ecmwfMembers + 1
	for pert := 0; pert <= ecmwfMembers; pert++ {
		add(domain.GribRecord{
			File:            "ecmwf.20240426.00z.enfo.grib2",
			Offset:          int64(pert) * 412833,
			Parameter:       "2T",
			Level:           "2 m above ground",
			Forecast:        "24 hour fcst",
			Center:          domain.CenterECMWF,
			PDT:             1,
			Perturbation:    pert,
			EnsembleMembers: intPtr(ecmwfTotal),
		})
	}

	// ECMWF ensemble mean and spread over all members.
	for _, code := range []int{0, 2, 4} {
		add(domain.GribRecord{
			File:                "ecmwf.20240426.00z.enfo.grib2",
			Offset:              int64(ecmwfTotal+code) * 412833,
			Parameter:           "2T",
			Level:               "2 m above ground",
			Forecast:            "24 hour fcst",
			Center:              domain.CenterECMWF,
			PDT:                 2,
			EnsembleMembers:     intPtr(ecmwfMembers),
			DerivedForecastType: intPtr(code),
		})
	}

	// NCEP GEFS: low-resolution control and positively perturbed members.
	gefsTotal := gefsMembers + 1
	add(domain.GribRecord{
		File:            "gec00.t00z.pgrb2a.0p50.f024",
		Parameter:       "HGT",
		Level:           "500 mb",
		Forecast:        "24 hour fcst",
		Center:          domain.CenterNCEP,
		PDT:             1,
		EnsembleType:    intPtr(1),
		EnsembleMembers: intPtr(gefsTotal),
	})
	for pert := 1; pert <= gefsMembers; pert++ {
		add(domain.GribRecord{
			File:            fmt.Sprintf("gep%02d.t00z.pgrb2a.0p50.f024", pert),
			Parameter:       "HGT",
			Level:           "500 mb",
			Forecast:        "24 hour fcst",
			Center:          domain.CenterNCEP,
			PDT:             1,
			EnsembleType:    intPtr(3),
			Perturbation:    pert,
			EnsembleMembers: intPtr(gefsTotal),
		})
	}

	// SREF members use the NCEP local ensemble type.
	for pert := 1; pert <= 3; pert++ {
		add(domain.GribRecord{
			File:            fmt.Sprintf("sref_arw.t03z.pgrb132.p%d.f06", pert),
			Parameter:       "TMP",
			Level:           "850 mb",
			Forecast:        "6 hour fcst",
			Center:          domain.CenterNCEP,
			PDT:             1,
			EnsembleType:    intPtr(192),
			Perturbation:    pert,
			EnsembleMembers: intPtr(26),
		})
	}

	// GEFS derived products: mean, spread, cluster statistics, NAEFS percentiles.
	derived := []struct {
		file string
		pdt  int
		code int
	}{
		{"geavg.t00z.pgrb2a.0p50.f024", 2, 0},
		{"gespr.t00z.pgrb2a.0p50.f024", 2, 4},
		{"geclu.t00z.pgrb2a.0p50.f024", 4, 2},
		{"geclu.t00z.pgrb2a.0p50.f024", 4, 6},
		{"naefs_ge10pt.t00z.pgrb2a.f024", 12, 193},
		{"naefs_ge50pt.t00z.pgrb2a.f024", 12, 194},
		{"naefs_ge90pt.t00z.pgrb2a.f024", 12, 195},
		{"naefs_geefi.t00z.pgrb2a.f024", 12, 199},
	}
	for _, d := range derived {
		add(domain.GribRecord{
			File:                d.file,
			Parameter:           "HGT",
			Level:               "500 mb",
			Forecast:            "24 hour fcst",
			Center:              domain.CenterNCEP,
			PDT:                 d.pdt,
			EnsembleMembers:     intPtr(gefsTotal),
			DerivedForecastType: intPtr(d.code),
		})
	}

	return recs
}

func writeLines(path string, recs []domain.GribRecord, write func(io.Writer, domain.GribRecord) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, rec := range recs {
		if err := write(w, rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

func intPtr(v int) *int { return &v }
