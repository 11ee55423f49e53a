package patient

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

var whitespace = regexp.MustCompile(`\s+`)

// Person builds the NART person: demographics, names, phone and landmark
// attributes, and the guardian as a related person.
func Person(src *emastercard.Patient, errs *errlog.Log) nart.Person {
	if src.Person.Gender == nil || strings.TrimSpace(*src.Person.Gender) == "" {
		errs.Add("Missing gender")
	}
	if src.Person.Birthdate == nil {
		errs.Add("Missing birthdate")
	}

	return nart.Person{
		Gender:             src.Person.Gender,
		Birthdate:          src.Person.Birthdate,
		BirthdateEstimated: src.Person.BirthdateEstimated,
		Names:              names(src.Names),
		Attributes:         attributes(src, errs),
		Relationships:      guardian(src.Row),
	}
}

func names(rows []emastercard.PersonName) []nart.PersonName {
	out := make([]nart.PersonName, 0, len(rows))
	for _, r := range rows {
		out = append(out, nart.PersonName{
			GivenName:  deref(r.GivenName),
			FamilyName: deref(r.FamilyName),
			MiddleName: r.MiddleName,
		})
	}
	return out
}

func attributes(src *emastercard.Patient, errs *errlog.Log) []nart.PersonAttribute {
	var out []nart.PersonAttribute
	if phone := deref(src.Row.PatientPhone); phone != "" {
		out = append(out, nart.PersonAttribute{AttributeTypeID: nart.AttributeTypePhoneNumber, Value: phone})
	}
	for _, address := range src.Addresses {
		landmark := deref(address)
		if landmark == "" {
			errs.Add("Missing residential address")
			continue
		}
		out = append(out, nart.PersonAttribute{AttributeTypeID: nart.AttributeTypeLandmark, Value: landmark})
	}
	return out
}

// guardian splits guardian_name into given and family name on the first
// run of whitespace.
func guardian(row emastercard.PatientRow) []nart.Relationship {
	name := deref(row.GuardianName)
	if name == "" {
		return nil
	}
	parts := whitespace.Split(name, 2)
	person := nart.Person{Names: []nart.PersonName{{GivenName: parts[0]}}}
	if len(parts) > 1 {
		person.Names[0].FamilyName = parts[1]
	}
	if phone := deref(row.GuardianPhone); phone != "" {
		person.Attributes = []nart.PersonAttribute{{AttributeTypeID: nart.AttributeTypePhoneNumber, Value: phone}}
	}
	return []nart.Relationship{{RelationshipTypeID: nart.RelationshipTypeGuardian, PersonB: person}}
}

// Identifiers returns the ARV number, qualified with the site prefix, when
// the source patient has one.
func Identifiers(src *emastercard.Patient, site string) []nart.Identifier {
	number := deref(src.ARVNumber)
	if number == "" {
		return nil
	}
	return []nart.Identifier{{
		IdentifierTypeID: nart.IdentifierTypeARVNumber,
		Identifier:       fmt.Sprintf("ARV-%s-%s", site, number),
	}}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
