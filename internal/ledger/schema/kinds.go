package schema

import "fmt"

// Closed value sets. Stored as words, not numeric codes, so the audit trail
// stays legible without a lookup table.
var (
	symptomValues = []string{
		"cough", "dyspnea", "fatigue", "fever", "headache", "nausea", "pain", "rash", "vomiting",
	}
	severityValues    = []string{"mild", "moderate", "severe"}
	seriousnessValues = []string{"non_serious", "serious", "life_threatening", "fatal"}
	outcomeValues     = []string{
		"recovered", "recovering", "not_recovered", "recovered_with_sequelae", "fatal", "unknown",
	}
	doseUnitValues = []string{"mg", "mcg", "g", "ml", "iu", "tablet", "puff"}
	routeValues    = []string{"oral", "intravenous", "intramuscular", "subcutaneous", "inhaled", "topical"}
)

// Default returns a registry with every built-in payload kind.
func Default() *Registry {
	r := NewRegistry()
	r.Register("note", 1, validateNoteV1)
	r.Register("symptom_diary", 1, validateSymptomDiaryV1)
	r.Register("adverse_event", 1, validateAdverseEventV1)
	r.Register("medication", 1, validateMedicationV1)
	r.Register("medication", 2, validateMedicationV2)
	return r
}

func validateNoteV1(f Fields) error {
	_, err := f.Text("text", 4000)
	return err
}

// A diary day either records symptoms or states that none occurred or that
// the day cannot be recalled.
func validateSymptomDiaryV1(f Fields) error {
	if _, err := f.Date("date"); err != nil {
		return err
	}
	if err := f.Exclusive("no_symptoms", "unable_to_recall"); err != nil {
		return err
	}
	none, _ := f.Bool("no_symptoms")
	unknown, _ := f.Bool("unable_to_recall")
	if none || unknown {
		flag := "no_symptoms is true"
		if unknown {
			flag = "unable_to_recall is true"
		}
		if err := f.Forbid("symptoms", flag); err != nil {
			return err
		}
		return f.Forbid("severity", flag)
	}
	if _, err := f.EnumList("symptoms", symptomValues...); err != nil {
		return err
	}
	_, err := f.Enum("severity", severityValues...)
	return err
}

func validateAdverseEventV1(f Fields) error {
	if _, err := f.Text("term", 200); err != nil {
		return err
	}
	if _, err := f.Enum("seriousness", seriousnessValues...); err != nil {
		return err
	}
	outcome, err := f.Enum("outcome", outcomeValues...)
	if err != nil {
		return err
	}
	onset, err := f.Date("onset_date")
	if err != nil {
		return err
	}
	if outcome != "recovered" && outcome != "recovered_with_sequelae" {
		return f.Forbid("resolution_date", fmt.Sprintf("outcome is %s", outcome))
	}
	if f.Has("resolution_date") {
		resolved, err := f.Date("resolution_date")
		if err != nil {
			return err
		}
		if resolved.Before(onset) {
			return fieldError("resolution_date", "must not be before onset_date")
		}
	}
	return nil
}

func validateMedicationV1(f Fields) error {
	if _, err := f.Text("name", 200); err != nil {
		return err
	}
	if _, err := f.PositiveNumber("dose"); err != nil {
		return err
	}
	_, err := f.Enum("unit", doseUnitValues...)
	return err
}

func validateMedicationV2(f Fields) error {
	if err := validateMedicationV1(f); err != nil {
		return err
	}
	_, err := f.Enum("route", routeValues...)
	return err
}
