package catalog

// Allergens enumerates allergen categories (1-9) and specific ingredients
// (100 and up).
var Allergens = newTable("allergenicIngredients", map[int]string{
	// Categories
	1: "FragrancesAndPerfumes",
	2: "Preservatives",
	3: "SunscreenAgents",
	4: "SurfactantsAndEmulsifiers",
	5: "ColorantsAndDyes",
	6: "PlantBasedAllergens",
	7: "AlcoholsAndAcids",
	8: "AnimalDerivedIngredients",
	9: "OtherCommonAllergens",

	// Fragrances
	100: "FragranceParfum",
	101: "Linalool",
	102: "Citronellol",
	103: "Geraniol",
	104: "Eugenol",
	105: "Cinnamal",
	106: "Hydroxycitronellal",

	// Preservatives
	107: "Methylparaben",
	108: "Propylparaben",
	109: "DMDMHydantoin",
	110: "ImidazolidinylUrea",
	111: "Quaternium15",
	112: "Phenoxyethanol",
	113: "Methylisothiazolinone",
	114: "Methylchloroisothiazolinone",
	115: "BenzylAlcohol",
	116: "Formaldehyde",

	// Sunscreen agents
	117: "Oxybenzone",
	118: "Avobenzone",
	119: "Octinoxate",
	120: "Homosalate",
	121: "PABA",

	// Surfactants and emulsifiers
	122: "CocamidopropylBetaine",
	123: "SodiumLaurylSulfate",
	124: "Polysorbates",
	125: "AmmoniumLaurylSulfate",

	// Colorants and metals
	126: "FDCRed40",
	127: "FDCYellow5",
	128: "CoalTarDyes",
	129: "Chromium",
	130: "Cobalt",

	// Plant based
	131: "TeaTreeOil",
	132: "LavenderOil",
	133: "PeppermintOil",
	134: "EucalyptusOil",
	135: "LemonOil",
	136: "LimeOil",
	137: "OrangeOil",
	138: "Arnica",
	139: "WitchHazel",

	// Alcohols and acids
	140: "SDAlcohol",
	141: "AlphaHydroxyAcids",
	142: "SalicylicAcid",
	143: "GlycolicAcid",
	144: "LacticAcid",

	// Animal derived
	145: "Lanolin",
	146: "Beeswax",

	// Other
	147: "AlmondOil",
	148: "PeanutOil",
	149: "CoconutOil",
	150: "Nickel",
	151: "Latex",
	152: "EssentialOils",
})
