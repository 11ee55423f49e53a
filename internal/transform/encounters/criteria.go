package encounters

import "strings"

// whoCriteria maps eMastercard's HIV related disease names, lower cased,
// onto NART staging condition concepts.
var whoCriteria = map[string]int{
	// Stage 1
	"asymptomatic":                           5327,
	"persistent generalized lymphadenopathy": 5328,
	"persistent generalised lymphadenopathy": 5328,

	// Stage 2
	"moderate unexplained weight loss":       5332,
	"recurrent respiratory tract infections": 6758,
	"herpes zoster":                          836,
	"angular cheilitis":                      2575,
	"recurrent oral ulcerations":             2576,
	"papular pruritic eruptions":             2577,
	"seborrhoeic dermatitis":                 2578,
	"fungal nail infections":                 2579,
	"hepatosplenomegaly":                     5333,

	// Stage 3
	"severe weight loss":                             7540,
	"unexplained chronic diarrhoea":                  5018,
	"unexplained persistent fever":                   5027,
	"oral candidiasis":                               5334,
	"oral hairy leukoplakia":                         5337,
	"pulmonary tuberculosis":                         8206,
	"pulmonary tb":                                   8206,
	"pulmonary tuberculosis within the last 2 years": 7539,
	"severe bacterial infections":                    2583,
	"acute necrotizing ulcerative stomatitis":        2584,
	"unexplained anaemia":                            7541,
	"moderate unexplained malnutrition":              2585,

	// Stage 4
	"hiv wasting syndrome":                                 823,
	"pneumocystis pneumonia":                               882,
	"recurrent severe bacterial pneumonia":                 2587,
	"chronic herpes simplex infection":                     5344,
	"oesophageal candidiasis":                              5340,
	"extrapulmonary tuberculosis":                          1547,
	"kaposi's sarcoma":                                     507,
	"kaposis sarcoma":                                      507,
	"cytomegalovirus infection":                            5035,
	"toxoplasmosis of the brain":                           990,
	"hiv encephalopathy":                                   1362,
	"extrapulmonary cryptococcosis":                        2588,
	"disseminated non-tuberculous mycobacterial infection": 2589,
	"progressive multifocal leukoencephalopathy":           5046,
	"chronic cryptosporidiosis":                            2590,
	"chronic isosporiasis":                                 2591,
	"disseminated mycosis":                                 2592,
	"recurrent septicaemia":                                2593,
	"lymphoma":                                             2594,
	"invasive cancer of cervix":                            2595,
	"atypical disseminated leishmaniasis":                  2596,
	"symptomatic hiv-associated nephropathy":               2597,
	"symptomatic hiv-associated cardiomyopathy":            2598,
	"presumed severe hiv":                                  8263,
}

// criterionConcept resolves a staging condition name, falling back to the
// generic other concept.
func criterionConcept(name string) (int, bool) {
	c, ok := whoCriteria[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}
