package marketplace

import (
	"time"

	"carbon-scribe/project-portal/dapp-portal-backend/pkg/sui"
)

// CategoryAll disables the project type filter.
const CategoryAll = "All"

var categories = []string{
	CategoryAll,
	"Forest Conservation",
	"Renewable Energy",
	"Ocean Conservation",
	"Waste Management",
	"Sustainable Agriculture",
	"Clean Technology",
	"Carbon Capture",
}

var verificationStandards = []string{
	"Gold Standard",
	"Verified Carbon Standard (VCS)",
	"American Carbon Registry",
	"Climate Action Reserve",
	"Plan Vivo",
	"CDM (Clean Development Mechanism)",
}

var projectTypes = []string{
	"Forest Conservation",
	"Renewable Energy",
	"Ocean Conservation",
	"Waste Management",
	"Sustainable Agriculture",
	"Clean Technology",
	"Carbon Capture",
	"Energy Efficiency",
}

// Preset is a quick-start template for the minting form.
type Preset struct {
	Name string `json:"name"`
	MintingData
}

var presets = []Preset{
	{
		Name: "Amazon Rainforest Protection",
		MintingData: MintingData{
			ProjectName:          "Amazon Rainforest Protection",
			ProjectDescription:   "Protecting 50 hectares of Amazon rainforest from deforestation",
			ProjectLocation:      "Brazil, Amazon Basin",
			VerificationStandard: "Gold Standard",
			ProjectType:          "Forest Conservation",
			CreditsAmount:        500,
			PricePerCredit:       1_500_000_000,
		},
	},
	{
		Name: "Solar Farm Development",
		MintingData: MintingData{
			ProjectName:          "Solar Farm Development",
			ProjectDescription:   "50MW solar farm reducing fossil fuel dependency",
			ProjectLocation:      "California, USA",
			VerificationStandard: "Verified Carbon Standard (VCS)",
			ProjectType:          "Renewable Energy",
			CreditsAmount:        1000,
			PricePerCredit:       1_200_000_000,
		},
	},
	{
		Name: "Ocean Cleanup Initiative",
		MintingData: MintingData{
			ProjectName:          "Ocean Cleanup Initiative",
			ProjectDescription:   "Marine ecosystem restoration and plastic cleanup",
			ProjectLocation:      "Pacific Ocean",
			VerificationStandard: "American Carbon Registry",
			ProjectType:          "Ocean Conservation",
			CreditsAmount:        200,
			PricePerCredit:       2_000_000_000,
		},
	},
}

// Catalog is the fixed vocabulary offered by the forms.
type Catalog struct {
	Categories            []string `json:"categories"`
	VerificationStandards []string `json:"verification_standards"`
	ProjectTypes          []string `json:"project_types"`
	Presets               []Preset `json:"presets"`
}

// DefaultCatalog returns a copy of the built-in catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		Categories:            append([]string(nil), categories...),
		VerificationStandards: append([]string(nil), verificationStandards...),
		ProjectTypes:          append([]string(nil), projectTypes...),
		Presets:               append([]Preset(nil), presets...),
	}
}

// FindPreset looks a preset up by name.
func FindPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// DefaultMintingData is the quick form before the user changes anything.
func DefaultMintingData() MintingData {
	return MintingData{
		VerificationStandard: "Gold Standard",
		ProjectType:          "Forest Conservation",
		CreditsAmount:        100,
		PricePerCredit:       sui.MistPerSUI,
	}
}

// sampleListings seeds every new book. The numeric ids mark them as demo
// listings.
func sampleListings() []Listing {
	return []Listing{
		{
			ID:                   "1",
			ProjectName:          "Amazon Rainforest Conservation",
			ProjectDescription:   "Carbon credits from protecting 100 hectares of Amazon rainforest. Verified by Gold Standard. Each credit represents 1 ton of CO2 sequestered.",
			ProjectLocation:      "Brazil, Amazon Basin",
			VerificationStandard: "Gold Standard",
			ProjectType:          "Forest Conservation",
			Seller:               "0x1234567890abcdef1234567890abcdef12345678",
			CreditsAmount:        1000,
			PricePerCredit:       1_000_000_000,
			TotalPrice:           1_000_000_000_000,
			Active:               true,
			CreatedAt:            time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			ID:                   "2",
			ProjectName:          "Solar Farm Development",
			ProjectDescription:   "Carbon credits from a 50MW solar farm in California. Clean energy generation reducing fossil fuel dependency. Each credit represents 1 ton of CO2 avoided.",
			ProjectLocation:      "California, USA",
			VerificationStandard: "Verified Carbon Standard (VCS)",
			ProjectType:          "Renewable Energy",
			Seller:               "0xabcdef1234567890abcdef1234567890abcdef12",
			CreditsAmount:        500,
			PricePerCredit:       1_500_000_000,
			TotalPrice:           750_000_000_000,
			Active:               true,
			CreatedAt:            time.Date(2024, 1, 14, 15, 45, 0, 0, time.UTC),
		},
		{
			ID:                   "3",
			ProjectName:          "Ocean Cleanup Initiative",
			ProjectDescription:   "Carbon credits from ocean plastic cleanup and marine ecosystem restoration. Each credit represents 1 ton of CO2 equivalent through ocean health improvement.",
			ProjectLocation:      "Pacific Ocean",
			VerificationStandard: "American Carbon Registry",
			ProjectType:          "Ocean Conservation",
			Seller:               "0x7890abcdef1234567890abcdef1234567890abcd",
			CreditsAmount:        2000,
			PricePerCredit:       2_000_000_000,
			TotalPrice:           4_000_000_000_000,
			Active:               true,
			CreatedAt:            time.Date(2024, 1, 13, 9, 15, 0, 0, time.UTC),
		},
	}
}
