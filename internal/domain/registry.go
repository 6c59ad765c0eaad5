package domain

// registry is populated once at package init and never written afterwards,
// so concurrent readers need no locking.
var registry = map[DrugClass]DrugClassProperties{
	Metformin: {
		Class:                  Metformin,
		Name:                   "Metformin",
		Efficacy:               EfficacyHigh,
		Hypoglycemia:           false,
		Weight:                 WeightEffect{Direction: WeightNeutral},
		CardiovascularEffect:   "Potential Benefit",
		HeartFailureEffect:     "Neutral",
		RenalEffect:            "Neutral",
		Cost:                   CostLow,
		ClinicalConsiderations: []string{"Troubles digestifs", "Acidose lactique rare", "Déficit B12"},
	},
	SGLT2Inhibitor: {
		Class:                  SGLT2Inhibitor,
		Name:                   "SGLT2 Inhibitors",
		Efficacy:               EfficacyIntermediate,
		Hypoglycemia:           false,
		Weight:                 WeightEffect{Direction: WeightLoss},
		CardiovascularEffect:   "Benefit (MACE)",
		HeartFailureEffect:     "Benefit (Major)",
		RenalEffect:            "Benefit (DKD)",
		Cost:                   CostHigh,
		ClinicalConsiderations: []string{"Mycoses génitales", "DKA euglycémique", "Hypotension"},
	},
	GLP1ReceptorAgon: {
		Class:                  GLP1ReceptorAgon,
		Name:                   "GLP-1 RAs",
		Efficacy:               EfficacyHigh,
		EfficacyCeiling:        EfficacyVeryHigh,
		Hypoglycemia:           false,
		Weight:                 WeightEffect{Direction: WeightLoss, Magnitude: MagnitudeHigh},
		CardiovascularEffect:   "Benefit (MACE)",
		HeartFailureEffect:     "Neutral",
		RenalEffect:            "Benefit (Albuminuria)",
		Cost:                   CostHigh,
		ClinicalConsiderations: []string{"Nausées/Vomissements", "Contre-ind: MEN2", "Rétinopathie (rapide)"},
	},
	GIPGLP1DualAgon: {
		Class:                  GIPGLP1DualAgon,
		Name:                   "GIP/GLP-1 RA",
		Efficacy:               EfficacyVeryHigh,
		Hypoglycemia:           false,
		Weight:                 WeightEffect{Direction: WeightLoss, Magnitude: MagnitudeVeryHigh},
		CardiovascularEffect:   "Investigation",
		HeartFailureEffect:     "Investigation",
		RenalEffect:            "Investigation",
		Cost:                   CostHigh,
		ClinicalConsiderations: []string{"Nausées", "Efficacité maximale"},
	},
	DPP4Inhibitor: {
		Class:                  DPP4Inhibitor,
		Name:                   "DPP-4 Inhibitors",
		Efficacy:               EfficacyIntermediate,
		Hypoglycemia:           false,
		Weight:                 WeightEffect{Direction: WeightNeutral},
		CardiovascularEffect:   "Neutral",
		HeartFailureEffect:     "Neutral",
		RenalEffect:            "Neutral",
		Cost:                   CostHigh,
		ClinicalConsiderations: []string{"Bien toléré", "Douleurs articulaires"},
	},
	Sulfonylurea: {
		Class:                  Sulfonylurea,
		Name:                   "Sulfonylureas",
		Efficacy:               EfficacyHigh,
		Hypoglycemia:           true,
		Weight:                 WeightEffect{Direction: WeightGain},
		CardiovascularEffect:   "Neutral",
		HeartFailureEffect:     "Neutral",
		RenalEffect:            "Neutral",
		Cost:                   CostLow,
		ClinicalConsiderations: []string{"Hypoglycémie", "Prise de poids"},
	},
	Thiazolidinedione: {
		Class:                  Thiazolidinedione,
		Name:                   "Thiazolidinediones",
		Efficacy:               EfficacyHigh,
		Hypoglycemia:           false,
		Weight:                 WeightEffect{Direction: WeightGain},
		CardiovascularEffect:   "Potential Benefit",
		HeartFailureEffect:     "Risk (Edema)",
		RenalEffect:            "Neutral",
		Cost:                   CostLow,
		ClinicalConsiderations: []string{"Insuffisance Cardiaque", "Fractures"},
	},
	Insulin: {
		Class:                  Insulin,
		Name:                   "Insulin",
		Efficacy:               EfficacyHighest,
		Hypoglycemia:           true,
		Weight:                 WeightEffect{Direction: WeightGain},
		CardiovascularEffect:   "Neutral",
		HeartFailureEffect:     "Neutral",
		RenalEffect:            "Neutral",
		Cost:                   CostVariable,
		ClinicalConsiderations: []string{"Hypoglycémie", "Lipodystrophies"},
	},
}

// LookupDrugClass returns the properties of a class. The returned value is a copy;
// the clinical considerations slice must be treated as read-only.
func LookupDrugClass(dc DrugClass) (DrugClassProperties, error) {
	p, ok := registry[dc]
	if !ok {
		return DrugClassProperties{}, ErrUnknownDrugClass
	}
	return p, nil
}

// DrugRegistry returns all registry entries in canonical order.
func DrugRegistry() []DrugClassProperties {
	out := make([]DrugClassProperties, 0, len(AllDrugClasses))
	for _, dc := range AllDrugClasses {
		out = append(out, registry[dc])
	}
	return out
}
