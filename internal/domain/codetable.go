package domain

import (
	"fmt"
	"strings"
)

// LabelStyle selects the wording used for ensemble labels.
type LabelStyle string

const (
	// StyleDescriptive spells labels out, e.g. "positive perturbation 7".
	StyleDescriptive LabelStyle = "descriptive"
	// StyleWgrib2 uses the compact wgrib2 inventory wording, e.g. "ENS=+7".
	StyleWgrib2 LabelStyle = "wgrib2"
)

// ParseLabelStyle validates a style name. Matching is case-insensitive.
func ParseLabelStyle(s string) (LabelStyle, error) {
	switch LabelStyle(strings.ToLower(strings.TrimSpace(s))) {
	case StyleDescriptive:
		return StyleDescriptive, nil
	case StyleWgrib2:
		return StyleWgrib2, nil
	default:
		return "", fmt.Errorf("unknown label style %q", s)
	}
}

// anyCenter marks a code that is valid for every originating center.
const anyCenter = -1

// phrase holds the wording of one table entry in both label styles.
type phrase struct {
	descriptive string
	wgrib2      string
}

func (p phrase) in(style LabelStyle) string {
	if style == StyleWgrib2 {
		return p.wgrib2
	}
	return p.descriptive
}

// ensembleTypeRule is one code table 4.6 entry. Phrases with a %d verb take
// the perturbation number.
type ensembleTypeRule struct {
	center int
	label  phrase
}

var ensembleTypeTable = map[int]ensembleTypeRule{
	0:   {anyCenter, phrase{"high-resolution control", "ENS=hi-res ctl"}},
	1:   {anyCenter, phrase{"low-resolution control", "ENS=low-res ctl"}},
	2:   {anyCenter, phrase{"negative perturbation %d", "ENS=-%d"}},
	3:   {anyCenter, phrase{"positive perturbation %d", "ENS=+%d"}},
	4:   {anyCenter, phrase{"multi-model perturbation %d", "MM-ENS=%d"}},
	192: {CenterNCEP, phrase{"ensemble member %d", "ENS=%d"}},
}

var unrecognizedEnsembleType = phrase{
	"unrecognized ensemble type=%d perturbation=%d",
	"ENS=? table4.6=%d pert=%d",
}

// derivedForecastRule is one code table 4.7 entry. When cluster is set the
// code has template-dependent wording: ensemble applies under PDT 2 and 12,
// cluster under every other template.
type derivedForecastRule struct {
	center   int
	ensemble phrase
	cluster  *phrase
}

var derivedForecastTable = map[int]derivedForecastRule{
	0: {center: anyCenter, ensemble: phrase{"ensemble mean", "ens mean"}},
	1: {center: anyCenter, ensemble: phrase{"weighted ensemble mean", "wt ens mean"}},
	2: {
		center:   anyCenter,
		ensemble: phrase{"ensemble std dev", "ens std dev"},
		cluster:  &phrase{"cluster std dev", "cluster std dev"},
	},
	3: {
		center:   anyCenter,
		ensemble: phrase{"normalized ensemble std dev", "normalized ens std dev"},
		cluster:  &phrase{"normalized cluster std dev", "normalized cluster std dev"},
	},
	4: {center: anyCenter, ensemble: phrase{"ensemble spread", "ens spread"}},
	5: {center: anyCenter, ensemble: phrase{"ensemble large anomaly index", "ens large anom index"}},
	6: {
		center:   anyCenter,
		ensemble: phrase{"unweighted ensemble mean", "unwt ens mean"},
		cluster:  &phrase{"unweighted cluster mean", "unwt cluster mean"},
	},
	7: {center: anyCenter, ensemble: phrase{"25%-75% range", "25%-75% range"}},
	8: {center: anyCenter, ensemble: phrase{"minimum across members", "min all members"}},
	9: {center: anyCenter, ensemble: phrase{"maximum across members", "max all members"}},

	192: {center: CenterNCEP, ensemble: phrase{"unweighted mode across members", "unwt mode all members"}},
	193: {center: CenterNCEP, ensemble: phrase{"10th percentile across members", "10% all members"}},
	194: {center: CenterNCEP, ensemble: phrase{"50th percentile across members", "50% all members"}},
	195: {center: CenterNCEP, ensemble: phrase{"90th percentile across members", "90% all members"}},
	196: {center: CenterNCEP, ensemble: phrase{"statistical weight for each member", "stat. weight for each members"}},
	197: {center: CenterNCEP, ensemble: phrase{"percentile from climate distribution", "percentile from climate distribution"}},
	198: {center: CenterNCEP, ensemble: phrase{"deviation of ensemble mean from daily climatology", "deviation of ens mean from daily climo"}},
	199: {center: CenterNCEP, ensemble: phrase{"extreme forecast index", "extreme forecast index"}},
	200: {center: CenterNCEP, ensemble: phrase{"equally weighted mean", "equally weighted mean"}},
	201: {center: CenterNCEP, ensemble: phrase{"5th percentile across members", "5% all members"}},
	202: {center: CenterNCEP, ensemble: phrase{"25th percentile across members", "25% all members"}},
	203: {center: CenterNCEP, ensemble: phrase{"75th percentile across members", "75% all members"}},
	204: {center: CenterNCEP, ensemble: phrase{"95th percentile across members", "95% all members"}},
}

var unknownDerivedForecast = phrase{"unknown derived forecast", "unknown derived fcst"}

var memberCount = phrase{"%d ensemble members", "%d ens members"}

func appliesTo(ruleCenter, center int) bool {
	return ruleCenter == anyCenter || ruleCenter == center
}

// allMembersTemplate reports whether the PDT derives its forecast from every
// ensemble member rather than from a cluster.
func allMembersTemplate(pdt int) bool {
	return pdt == 2 || pdt == 12
}

// lookupEnsembleType resolves a code table 4.6 value. Codes owned by another
// center resolve the same way as codes missing from the table.
func lookupEnsembleType(code, center, pert int, style LabelStyle) (string, bool) {
	rule, ok := ensembleTypeTable[code]
	if !ok || !appliesTo(rule.center, center) {
		return fmt.Sprintf(unrecognizedEnsembleType.in(style), code, pert), false
	}
	label := rule.label.in(style)
	if strings.Contains(label, "%d") {
		return fmt.Sprintf(label, pert), true
	}
	return label, true
}

// lookupDerivedForecast resolves a code table 4.7 value.
func lookupDerivedForecast(code, center, pdt int, style LabelStyle) (string, bool) {
	rule, ok := derivedForecastTable[code]
	if !ok || !appliesTo(rule.center, center) {
		return unknownDerivedForecast.in(style), false
	}
	if rule.cluster != nil && !allMembersTemplate(pdt) {
		return rule.cluster.in(style), true
	}
	return rule.ensemble.in(style), true
}
