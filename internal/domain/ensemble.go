package domain

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// MaxCorrectionWarnings caps the diagnostics a Decoder logs for the ECMWF
// ensemble type correction over its lifetime.
const MaxCorrectionWarnings = 4

// Description is the decoded ensemble metadata of one record.
type Description struct {
	Ensemble string // code table 4.6 token, empty when the type is undefined
	Derived  string // code table 4.7 token, empty when not a derived forecast

	EnsembleType       int  // effective code table 4.6 value after correction
	Corrected          bool // the ECMWF correction supplied EnsembleType
	EnsembleRecognized bool
	DerivedRecognized  bool
}

// Tokens returns the non-empty tokens in output order.
func (d Description) Tokens() []string {
	tokens := make([]string, 0, 2)
	if d.Ensemble != "" {
		tokens = append(tokens, d.Ensemble)
	}
	if d.Derived != "" {
		tokens = append(tokens, d.Derived)
	}
	return tokens
}

// String joins the tokens with a single space.
func (d Description) String() string {
	return strings.Join(d.Tokens(), " ")
}

// Decoder turns ensemble metadata into inventory labels. It is safe for
// concurrent use; the only mutable state is the correction warning counter.
type Decoder struct {
	style    LabelStyle
	logger   *slog.Logger
	warnings atomic.Int64
}

// NewDecoder creates a Decoder for the given label style. Correction
// diagnostics go to logger; pass nil to use slog.Default.
func NewDecoder(style LabelStyle, logger *slog.Logger) *Decoder {
	if style == "" {
		style = StyleDescriptive
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{style: style, logger: logger}
}

// Style returns the decoder's label style.
func (d *Decoder) Style() LabelStyle {
	return d.style
}

// Corrections returns how many times the ECMWF correction has fired.
func (d *Decoder) Corrections() int64 {
	return d.warnings.Load()
}

// CorrectEnsembleType restores code table 4.6 for ECMWF ensemble records that
// leave it missing while carrying a member count and a non-negative
// perturbation number. ECMWF only has low-resolution controls and positively
// perturbed members. The record is not modified.
func CorrectEnsembleType(rec EnsembleRecord) (int, bool) {
	if rec.Center != CenterECMWF || rec.EnsembleType != EnsembleTypeUndefined ||
		rec.EnsembleMembers <= 0 || rec.PerturbationNumber < 0 {
		return rec.EnsembleType, false
	}
	if rec.PerturbationNumber == 0 {
		return 1, true
	}
	return 3, true
}

// Describe decodes the ensemble type and derived forecast type of rec.
func (d *Decoder) Describe(rec EnsembleRecord) Description {
	code, corrected := CorrectEnsembleType(rec)
	if corrected {
		d.warnCorrection(code)
		rec.EnsembleType = code
	}

	desc := Description{EnsembleType: code, Corrected: corrected}
	if rec.HasEnsembleType() {
		desc.Ensemble, desc.EnsembleRecognized = lookupEnsembleType(code, rec.Center, rec.PerturbationNumber, d.style)
	}
	if rec.IsDerived() {
		desc.Derived, desc.DerivedRecognized = lookupDerivedForecast(rec.DerivedForecastType, rec.Center, rec.ProductDefinitionTemplate, d.style)
	}
	return desc
}

// DescribeEnsemble returns the ensemble-type token followed by the
// derived-forecast token, omitting whichever is absent.
func (d *Decoder) DescribeEnsemble(rec EnsembleRecord) []string {
	return d.Describe(rec).Tokens()
}

// AppendEnsemble writes the space-joined label for rec to sb.
func (d *Decoder) AppendEnsemble(sb *strings.Builder, rec EnsembleRecord) {
	sb.WriteString(d.Describe(rec).String())
}

// DescribeMemberCount formats the number of forecasts in the ensemble. The
// missing value is shown as -1.
func (d *Decoder) DescribeMemberCount(n int) string {
	if n == MembersUnknown {
		n = -1
	}
	return fmt.Sprintf(memberCount.in(d.style), n)
}

// warnCorrection logs the first MaxCorrectionWarnings corrections.
func (d *Decoder) warnCorrection(code int) {
	if d.warnings.Add(1) > MaxCorrectionWarnings {
		return
	}
	d.logger.Warn(fmt.Sprintf("code table 4.6 is undefined, set to %d", code),
		"center", CenterECMWF,
		"ensemble_type", code,
	)
}
