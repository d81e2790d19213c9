package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseRawEvent deserializes a RawEvent's value into a GribRecord.
func ParseRawEvent(raw RawEvent) (GribRecord, error) {
	var rec GribRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return GribRecord{}, fmt.Errorf("parse raw event: %w", err)
	}
	if strings.TrimSpace(rec.Parameter) == "" {
		return GribRecord{}, errors.New("parse raw event: missing parameter")
	}
	return rec, nil
}

// BuildInventoryLine decodes the ensemble metadata of rec and assembles its
// inventory entry.
func BuildInventoryLine(decoder *Decoder, rec GribRecord) (InventoryLine, Description) {
	ens := rec.Ensemble()
	desc := decoder.Describe(ens)
	members := decoder.DescribeMemberCount(ens.EnsembleMembers)

	line := InventoryLine{
		ID:              generateID(rec),
		File:            rec.File,
		Record:          rec.Record,
		SubMessage:      rec.SubMessage,
		Offset:          rec.Offset,
		ReferenceTime:   rec.ReferenceTime,
		Parameter:       rec.Parameter,
		Level:           rec.Level,
		Forecast:        rec.Forecast,
		Center:          rec.Center,
		PDT:             rec.PDT,
		Ensemble:        desc.String(),
		Labels:          desc.Tokens(),
		EnsembleMembers: members,
		Corrected:       desc.Corrected,
		LabelStyle:      string(decoder.Style()),
		ProcessedAt:     clock.Now(),
	}
	if desc.EnsembleType != EnsembleTypeUndefined {
		code := desc.EnsembleType
		line.EnsembleType = &code
	}
	line.Inventory = formatInventory(rec, line.Ensemble, members)
	return line, desc
}

// formatInventory renders a wgrib2 short-inventory line:
// rec[.sub]:offset:d=YYYYMMDDHH:param:level:forecast:ensemble:members
func formatInventory(rec GribRecord, ensemble, members string) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(rec.Record))
	if rec.SubMessage > 0 {
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(rec.SubMessage))
	}
	fields := []string{
		strconv.FormatInt(rec.Offset, 10),
		"d=" + rec.ReferenceTime.UTC().Format("2006010215"),
		rec.Parameter,
		rec.Level,
		rec.Forecast,
		ensemble,
		members,
	}
	for _, f := range fields {
		sb.WriteByte(':')
		sb.WriteString(f)
	}
	return sb.String()
}

// SerializeInventoryLine marshals an inventory line into a keyed output event.
func SerializeInventoryLine(line InventoryLine) (OutputEvent, error) {
	data, err := json.Marshal(line)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize inventory line: %w", err)
	}
	return OutputEvent{
		Key:   []byte(line.ID),
		Value: data,
		Headers: map[string]string{
			"center":       strconv.Itoa(line.Center),
			"label_style":  line.LabelStyle,
			"processed_at": line.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// generateID produces a deterministic ID from the record's identity fields so
// reprocessing the same message yields the same sink key.
func generateID(rec GribRecord) string {
	input := fmt.Sprintf("%s|%d|%d|%d|%s|%s|%s|%s|%d",
		rec.File, rec.Record, rec.SubMessage, rec.Offset,
		rec.ReferenceTime.UTC().Format(time.RFC3339),
		rec.Parameter, rec.Level, rec.Forecast, rec.Perturbation)
	hash := sha256.Sum256([]byte(input))
	return strings.ToLower(rec.Parameter) + "-" + hex.EncodeToString(hash[:8])
}
