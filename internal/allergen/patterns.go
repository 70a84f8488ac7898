// Package allergen resolves declared allergen ids into ingredient search
// terms and checks ingredient text against them.
package allergen

// Pattern lists the spellings an allergen appears under in ingredient lists.
type Pattern struct {
	Primary     []string
	Alternative []string
	Scientific  []string
}

// Terms returns every spelling in declaration order.
func (p Pattern) Terms() []string {
	out := make([]string, 0, len(p.Primary)+len(p.Alternative)+len(p.Scientific))
	out = append(out, p.Primary...)
	out = append(out, p.Alternative...)
	out = append(out, p.Scientific...)
	return out
}

// knownPatterns is keyed by lowercased canonical allergen name.
var knownPatterns = map[string]Pattern{
	// Fragrances
	"fragranceparfum": {
		Primary:     []string{"fragrance", "parfum", "perfume"},
		Alternative: []string{"scent", "aroma"},
	},
	"fragrancesandperfumes": {
		Primary:     []string{"fragrance", "parfum", "perfume"},
		Alternative: []string{"scent", "aroma"},
	},
	"essentialoils": {
		Primary:     []string{"essential oil"},
		Alternative: []string{"parfum", "fragrance", "natural fragrance"},
	},

	// Plant oils
	"teatreeoil": {
		Primary:     []string{"tea tree", "tea tree oil"},
		Alternative: []string{"ti tree"},
		Scientific:  []string{"melaleuca alternifolia", "melaleuca"},
	},
	"lavenderoil": {
		Primary:    []string{"lavender", "lavender oil"},
		Scientific: []string{"lavandula", "lavandula angustifolia"},
	},
	"peppermintoil": {
		Primary:    []string{"peppermint", "peppermint oil"},
		Scientific: []string{"mentha piperita", "mentha"},
	},
	"eucalyptusoil": {
		Primary: []string{"eucalyptus", "eucalyptus oil"},
	},
	"lemonoil": {
		Primary:    []string{"lemon oil"},
		Scientific: []string{"citrus limon"},
	},
	"limeoil": {
		Primary:    []string{"lime oil"},
		Scientific: []string{"citrus aurantifolia"},
	},
	"orangeoil": {
		Primary:    []string{"orange oil"},
		Scientific: []string{"citrus aurantium", "citrus sinensis"},
	},
	"witchhazel": {
		Primary:    []string{"witch hazel"},
		Scientific: []string{"hamamelis", "hamamelis virginiana"},
	},
	"almondoil": {
		Primary:     []string{"almond oil"},
		Alternative: []string{"sweet almond oil"},
		Scientific:  []string{"prunus amygdalus", "prunus dulcis"},
	},
	"peanutoil": {
		Primary:     []string{"peanut oil"},
		Alternative: []string{"groundnut oil"},
		Scientific:  []string{"arachis hypogaea"},
	},
	"coconutoil": {
		Primary:    []string{"coconut oil"},
		Scientific: []string{"cocos nucifera"},
	},

	// Preservatives
	"preservatives": {
		Primary:     []string{"paraben", "phenoxyethanol", "benzyl alcohol"},
		Alternative: []string{"preservative", "antimicrobial"},
	},
	"methylparaben": {
		Primary:    []string{"methylparaben", "methyl paraben"},
		Scientific: []string{"methyl 4-hydroxybenzoate"},
	},
	"propylparaben": {
		Primary:    []string{"propylparaben", "propyl paraben"},
		Scientific: []string{"propyl 4-hydroxybenzoate"},
	},
	"dmdmhydantoin": {
		Primary:    []string{"dmdm hydantoin"},
		Scientific: []string{"dimethylol dimethyl hydantoin"},
	},
	"quaternium15": {
		Primary: []string{"quaternium-15", "quaternium 15"},
	},
	"benzylalcohol": {
		Primary: []string{"benzyl alcohol"},
	},

	// Sunscreen agents
	"sunscreenagents": {
		Primary:     []string{"titanium dioxide", "zinc oxide", "octinoxate", "avobenzone"},
		Alternative: []string{"uv filter", "sunscreen", "sun protection"},
	},

	// Surfactants
	"sodiumlaurylsulfate": {
		Primary:     []string{"sodium lauryl sulfate"},
		Alternative: []string{"sls", "sodium dodecyl sulfate"},
	},
	"cocamidopropylbetaine": {
		Primary:     []string{"cocamidopropyl betaine"},
		Alternative: []string{"capb"},
	},

	// Alcohols and acids
	"sdalcohol": {
		Primary:     []string{"sd alcohol", "alcohol denat"},
		Alternative: []string{"denatured alcohol", "ethyl alcohol"},
	},
	"salicylicacid": {
		Primary:     []string{"salicylic acid"},
		Alternative: []string{"bha", "beta hydroxy acid"},
	},
	"glycolicacid": {
		Primary:     []string{"glycolic acid"},
		Alternative: []string{"aha"},
	},
	"lacticacid": {
		Primary:     []string{"lactic acid"},
		Alternative: []string{"aha"},
	},
	"alphahydroxyacids": {
		Primary:     []string{"aha", "alpha hydroxy acid"},
		Alternative: []string{"glycolic acid", "lactic acid", "citric acid"},
	},

	// Animal derived
	"beeswax": {
		Primary:     []string{"beeswax"},
		Alternative: []string{"cera alba", "white wax"},
	},
}

// Supported returns the names with curated patterns.
func Supported() []string {
	out := make([]string, 0, len(knownPatterns))
	for k := range knownPatterns {
		out = append(out, k)
	}
	return out
}
