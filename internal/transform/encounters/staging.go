package encounters

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

const unknownReasonComment = "Reason for starting not determinable from eMastercard WHO stage or CD4 count"

// cd4Thresholds are checked in ascending order; the first one the count is
// at or under becomes the reason for starting.
var cd4Thresholds = []struct {
	limit   float64
	concept int
}{
	{250, nart.ConceptCD4LE250},
	{350, nart.ConceptCD4LE350},
	{500, nart.ConceptCD4LE500},
	{750, nart.ConceptCD4LE750},
}

var romanStages = map[string]int{"I": 1, "II": 2, "III": 3, "IV": 4}

// HIVStaging builds the staging encounter recorded at registration. A
// staging criteria field that is not a JSON list of names is a structural
// problem with the record and is returned as an error.
func (s *Session) HIVStaging(src *emastercard.Patient, errs *errlog.Log, registration nart.Encounter) (nart.Encounter, error) {
	date := retro(registration.EncounterDatetime)
	enc := nart.Encounter{
		EncounterTypeID:   nart.EncounterHIVStaging,
		EncounterDatetime: date,
	}
	add := func(o nart.Observation, ok bool) {
		if ok {
			enc.Observations = append(enc.Observations, o)
		}
	}

	add(tbStatusAtInitiation(src, errs, date))
	add(kaposisSarcoma(src, errs, date))

	var reason int
	stage, hasStage := whoStage(src, errs, date)
	if hasStage {
		stageConcept := s.stageConcept(src, stage, date)
		enc.Observations = append(enc.Observations, coded(nart.ConceptWHOStage, date, stageConcept))
		if stage >= 3 {
			reason = stageConcept
		}
	}

	cd4, cd4Reason := cd4Observations(src, date)
	enc.Observations = append(enc.Observations, cd4...)
	if reason == 0 {
		reason = cd4Reason
	}

	if reason == 0 && hasStage {
		reason = s.stageConcept(src, stage, date)
	}

	if reason != 0 {
		enc.Observations = append(enc.Observations, coded(nart.ConceptReasonForARTEligibility, date, reason))
	} else {
		o := coded(nart.ConceptReasonForARTEligibility, date, nart.ConceptUnknown)
		o.Comments = unknownReasonComment
		enc.Observations = append(enc.Observations, o)
	}

	criteria, err := stagingCriteria(src, date)
	if err != nil {
		return enc, err
	}
	enc.Observations = append(enc.Observations, criteria...)

	if src.Person.IsFemale() {
		add(pregnantOrBreastfeeding(src, errs, date))
	}
	return enc, nil
}

// stageConcept maps a WHO stage onto its concept, splitting stage 3 into
// the pediatric and adult variants.
func (s *Session) stageConcept(src *emastercard.Patient, stage int, at time.Time) int {
	switch stage {
	case 1:
		return nart.ConceptWHOStage1
	case 2:
		return nart.ConceptWHOStage2
	case 3:
		if s.Ages.IsPediatric(src.Person.Birthdate, at) {
			return nart.ConceptWHOStage3Peds
		}
		return nart.ConceptWHOStage3
	default:
		return nart.ConceptWHOStage4
	}
}

func whoStage(src *emastercard.Patient, errs *errlog.Log, date time.Time) (int, bool) {
	o, ok := src.Observations.Find(emastercard.ConceptWHOStage)
	if !ok {
		errs.Missing("who_stage", date)
		return 0, false
	}
	if o.ValueNumeric != nil {
		if n := int(*o.ValueNumeric); n >= 1 && n <= 4 {
			return n, true
		}
	}
	if n, ok := ParseStage(o.Text()); ok {
		return n, true
	}
	raw := o.Text()
	if raw == "" && o.ValueNumeric != nil {
		raw = strconv.FormatFloat(*o.ValueNumeric, 'f', -1, 64)
	}
	errs.Invalid("who_stage", raw, date)
	return 0, false
}

// ParseStage reads "3", "Stage 3", "III" or "Stage III".
func ParseStage(text string) (int, bool) {
	t := strings.ToUpper(strings.TrimSpace(text))
	t = strings.TrimSpace(strings.TrimPrefix(t, "WHO"))
	t = strings.TrimSpace(strings.TrimPrefix(t, "STAGE"))
	if n, err := strconv.Atoi(t); err == nil && n >= 1 && n <= 4 {
		return n, true
	}
	n, ok := romanStages[t]
	return n, ok
}

// cd4Observations records the CD4 count, its date and every threshold
// flag. It also returns the concept of the lowest threshold met, if any.
func cd4Observations(src *emastercard.Patient, date time.Time) ([]nart.Observation, int) {
	o, ok := src.Observations.Find(emastercard.ConceptCD4Count)
	if !ok {
		return nil, 0
	}
	count, ok := o.Number()
	if !ok {
		return nil, 0
	}

	countObs := numeric(nart.ConceptCD4Count, date, count)
	countObs.ValueModifier = "="
	out := []nart.Observation{countObs}
	if d, ok := src.Observations.Find(emastercard.ConceptCD4Date); ok && d.ValueDatetime != nil {
		out = append(out, datetime(nart.ConceptCD4Datetime, date, *d.ValueDatetime))
	}

	reason := 0
	for _, th := range cd4Thresholds {
		met := count <= th.limit
		out = append(out, coded(th.concept, date, yesNo(met)))
		if met && reason == 0 {
			reason = th.concept
		}
	}
	return out, reason
}

func stagingCriteria(src *emastercard.Patient, date time.Time) ([]nart.Observation, error) {
	o, ok := src.Observations.Find(emastercard.ConceptHIVRelatedDiseases)
	if !ok || o.Text() == "" {
		return nil, nil
	}

	var names []string
	if err := json.Unmarshal([]byte(o.Text()), &names); err != nil {
		return nil, fmt.Errorf("decode who staging criteria %q: %w", o.Text(), err)
	}

	var out []nart.Observation
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		concept, known := criterionConcept(name)
		if !known {
			concept = nart.ConceptOther
		}
		obs := coded(nart.ConceptWHOStagesCriteria, date, concept)
		if !known {
			obs.Comments = name
		}
		out = append(out, obs)
	}
	return out, nil
}

func tbStatusAtInitiation(src *emastercard.Patient, errs *errlog.Log, date time.Time) (nart.Observation, bool) {
	o, ok := src.Observations.Find(emastercard.ConceptInitialTBStatus)
	if !ok || o.Text() == "" {
		errs.Missing("initial_tb_status", date)
		return nart.Observation{}, false
	}
	text := strings.ToLower(o.Text())
	switch {
	case strings.Contains(text, "last 2years"):
		return coded(nart.ConceptPTBWithinLast2Years, date, nart.ConceptYes), true
	case strings.Contains(text, "never > 2years"):
		return coded(nart.ConceptPTBWithinLast2Years, date, nart.ConceptNo), true
	case strings.HasPrefix(text, "curr"):
		return coded(nart.ConceptCurrentEpisodeOfTB, date, nart.ConceptYes), true
	}
	errs.Invalid("initial_tb_status", o.Text(), date)
	return nart.Observation{}, false
}

func kaposisSarcoma(src *emastercard.Patient, errs *errlog.Log, date time.Time) (nart.Observation, bool) {
	o, ok := src.Observations.Find(emastercard.ConceptKS)
	if !ok || o.Text() == "" {
		errs.Missing("kaposis_sarcoma", date)
		return nart.Observation{}, false
	}
	switch strings.ToUpper(o.Text()) {
	case "Y", "YES":
		return coded(nart.ConceptKaposisSarcoma, date, nart.ConceptYes), true
	case "N", "NO":
		return coded(nart.ConceptKaposisSarcoma, date, nart.ConceptNo), true
	}
	errs.Invalid("kaposis_sarcoma", o.Text(), date)
	return nart.Observation{}, false
}

func pregnantOrBreastfeeding(src *emastercard.Patient, errs *errlog.Log, date time.Time) (nart.Observation, bool) {
	o, ok := src.Observations.Find(emastercard.ConceptPregnantOrBreastfeeding)
	if !ok || o.Text() == "" {
		errs.Missing("pregnant_or_breastfeeding", date)
		return nart.Observation{}, false
	}
	text := strings.ToLower(o.Text())
	switch {
	case strings.Contains(text, "bf"):
		return coded(nart.ConceptBreastFeeding, date, nart.ConceptYes), true
	case strings.Contains(text, "preg"):
		return coded(nart.ConceptPatientPregnant, date, nart.ConceptYes), true
	case strings.Contains(text, "n"), strings.Contains(text, "blank"):
		return coded(nart.ConceptPatientPregnant, date, nart.ConceptNo), true
	}
	errs.Invalid("pregnant_or_breastfeeding", o.Text(), date)
	return nart.Observation{}, false
}
