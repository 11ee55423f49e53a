package emastercard

// Concept IDs used by eMastercard observations.
const (
	ConceptHIVRelatedDiseases           = 1
	ConceptWHOStage                     = 3
	ConceptCD4Count                     = 4
	ConceptCD4Date                      = 5
	ConceptHeight1                      = 6 // eMastercard has two separate concepts for height
	ConceptWeight1                      = 7
	ConceptInitialTBStatus              = 9
	ConceptKS                           = 10
	ConceptPregnantOrBreastfeeding      = 11
	ConceptEverTakenARVs                = 12
	ConceptConfirmatoryHIVTest          = 17
	ConceptInitialARTRegimen            = 19
	ConceptInitialARTRegimenStartDate   = 20
	ConceptPillCount                    = 37
	ConceptARVsDispensed                = 40
	ConceptCPTDispensed                 = 43
	ConceptNextAppointmentDate          = 47
	ConceptOutcome                      = 48
	ConceptHeight2                      = 51
	ConceptWeight2                      = 52
	ConceptClinicalRegistrationType     = 55
	ConceptClinicalRegistrationDate     = 56
	ConceptClinicalRegistrationARTStart = 57
	ConceptARTInitiationAge             = 58
	ConceptARTInitiationAgeType         = 59
)

// Encounter types.
const (
	EncounterARTRegistration       = 1
	EncounterARTStatusAtInitiation = 2
	EncounterARTConfirmatoryTest   = 3
	EncounterARTVisit              = 4
)

// Identifier types.
const (
	IdentifierTypeARVNumber = 4
)

// VisitEventType is the visit_outcome_event.event_type of clinical visits.
const VisitEventType = "Clinical Visit"
