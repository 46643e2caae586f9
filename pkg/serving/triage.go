package serving

import "github.com/tbdelay/platform/pkg/schema"

const (
	CoughThresholdDays = 14

	RecommendXray        = "Cough >14 days detected → Recommend chest X-ray."
	RecommendGeneXpert   = "Chest X-ray suspicious → Suggest GeneXpert test."
	RecommendScreening   = "Close contact with TB case → Prioritize early screening."
	RecommendComorbidity = "Patient has comorbidity → Faster diagnosis recommended."
)

// Recommendations applies the triage rules to the raw inputs. Each rule is
// independent, so a patient may receive none or all of them.
func Recommendations(obs schema.Observation) []string {
	out := []string{}
	if cough, ok := obs.Number(schema.CoughDurationDays); ok && cough > CoughThresholdDays {
		out = append(out, RecommendXray)
	}
	if xray, _ := obs.Category(schema.XrayFindings); xray == "suspicious" {
		out = append(out, RecommendGeneXpert)
	}
	if obs.Flag(schema.ContactWithTBCase) {
		out = append(out, RecommendScreening)
	}
	if obs.Flag(schema.ComorbidityDiabetes) || obs.Flag(schema.ComorbidityHIV) {
		out = append(out, RecommendComorbidity)
	}
	return out
}
