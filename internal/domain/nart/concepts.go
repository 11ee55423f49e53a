package nart

// Concept IDs in the NART concept dictionary.
const (
	ConceptAgreesToFollowUp           = 2552
	ConceptAmountDispensed            = 2834
	ConceptARTSideEffects             = 7755
	ConceptARVRegimen                 = 8375
	ConceptBreastFeeding              = 5632
	ConceptCD4Count                   = 5497
	ConceptCD4Datetime                = 6831
	ConceptCD4LE250                   = 8262
	ConceptCD4LE350                   = 8207
	ConceptCD4LE500                   = 9389
	ConceptCD4LE750                   = 8208
	ConceptConfirmatoryHIVTestType    = 7880
	ConceptCotrimoxazole              = 916
	ConceptCurrentEpisodeOfTB         = 8206
	ConceptDateAntiretroviralsStarted = 2516
	ConceptDNAPCR                     = 844
	ConceptDrugOrderAdherence         = 6987
	ConceptEverReceivedART            = 7754
	ConceptEverRegisteredAtARTClinic  = 7937
	ConceptGuardianPresent            = 2122
	ConceptHeight                     = 5090
	ConceptHIVRapidTest               = 1040
	ConceptKaposisSarcoma             = 507
	ConceptNextAppointmentDate        = 5096
	ConceptNewPatient                 = 7572
	ConceptNo                         = 1066
	ConceptOnTBTreatment              = 7458
	ConceptOther                      = 6408
	ConceptPatientPregnant            = 6131
	ConceptPatientPresent             = 1805
	ConceptPresumedSevereHIVInInfants = 8263
	ConceptPTBWithinLast2Years        = 7539
	ConceptReasonForARTEligibility    = 7563
	ConceptTBConfirmedNotOnTreatment  = 7456
	ConceptTBStatus                   = 7459
	ConceptTBSuspected                = 7455
	ConceptTBNotSuspected             = 7454
	ConceptTypeOfPatient              = 3289
	ConceptUnknown                    = 1067
	ConceptUnknownARV                 = 5811
	ConceptViralLoad                  = 856
	ConceptWeight                     = 5089
	ConceptWHOStage                   = 7562
	ConceptWHOStage1                  = 9145
	ConceptWHOStage2                  = 9146
	ConceptWHOStage3                  = 2932
	ConceptWHOStage3Peds              = 1222
	ConceptWHOStage4                  = 2933
	ConceptWHOStagesCriteria          = 2743
	ConceptYes                        = 1065
)

// Order types.
const (
	OrderTypeDrug = 1
	OrderTypeLab  = 4
)

// Encounter types.
const (
	EncounterAppointment           = 7
	EncounterARTAdherence          = 68
	EncounterDispensing            = 54
	EncounterHIVClinicRegistration = 9
	EncounterHIVClinicConsultation = 53
	EncounterHIVReception          = 51
	EncounterHIVStaging            = 52
	EncounterRegistration          = 5
	EncounterTreatment             = 25
	EncounterVitals                = 6
)

// Patient program states.
const (
	StateDefaulted        = 12
	StateDied             = 3
	StateOnTreatment      = 7
	StatePreART           = 1
	StateTransferredOut   = 2
	StateTreatmentStopped = 6
)

// Programs.
const (
	ProgramHIV = 1
)

// Identifier, attribute and relationship types.
const (
	IdentifierTypeARVNumber  = 4
	AttributeTypeLandmark    = 19
	AttributeTypePhoneNumber = 12
	RelationshipTypeGuardian = 6
)

// Drug order frequencies.
const (
	FrequencyOnceADay  = "ONCE A DAY (OD)"
	FrequencyTwiceADay = "TWICE A DAY (BD)"
)

// Drugs referenced directly by inference rules.
const (
	DrugUnknownARV = 2985
)

// EncounterTypeName returns a readable label for logs.
func EncounterTypeName(id int) string {
	switch id {
	case EncounterAppointment:
		return "appointment"
	case EncounterARTAdherence:
		return "art_adherence"
	case EncounterDispensing:
		return "dispensing"
	case EncounterHIVClinicRegistration:
		return "hiv_clinic_registration"
	case EncounterHIVClinicConsultation:
		return "hiv_clinic_consultation"
	case EncounterHIVReception:
		return "hiv_reception"
	case EncounterHIVStaging:
		return "hiv_staging"
	case EncounterRegistration:
		return "registration"
	case EncounterTreatment:
		return "treatment"
	case EncounterVitals:
		return "vitals"
	}
	return "unknown"
}
