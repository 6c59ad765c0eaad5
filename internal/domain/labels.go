package domain

var classLabels = map[Locale]map[DrugClass]string{
	LocaleEnglish: {
		Metformin:         "Metformin",
		SGLT2Inhibitor:    "SGLT2i",
		GLP1ReceptorAgon:  "GLP-1 RA",
		GIPGLP1DualAgon:   "GIP/GLP-1 RA",
		DPP4Inhibitor:     "DPP-4i",
		Sulfonylurea:      "Sulfonylurea",
		Thiazolidinedione: "TZD",
		Insulin:           "Insulin",
	},
	LocaleRomanian: {
		Metformin:         "Metformin",
		SGLT2Inhibitor:    "SGLT2i",
		GLP1ReceptorAgon:  "GLP-1 RA",
		GIPGLP1DualAgon:   "GIP/GLP-1 RA",
		DPP4Inhibitor:     "DPP-4i",
		Sulfonylurea:      "Sulfoniluree",
		Thiazolidinedione: "TZD",
		Insulin:           "Insulină",
	},
	LocaleFrench: {
		Metformin:         "Metformine",
		SGLT2Inhibitor:    "iSGLT2",
		GLP1ReceptorAgon:  "aGLP-1",
		GIPGLP1DualAgon:   "Tirzépatide",
		DPP4Inhibitor:     "iDPP-4",
		Sulfonylurea:      "Sulfamide",
		Thiazolidinedione: "Glitazone",
		Insulin:           "Insuline",
	},
}

// ClassLabel returns the short clinical label of a class in a locale.
func ClassLabel(locale Locale, dc DrugClass) string {
	if labels, ok := classLabels[locale]; ok {
		if l, ok := labels[dc]; ok {
			return l
		}
	}
	return dc.String()
}
