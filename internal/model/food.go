package model

import (
	"strings"
	"time"
)

// ConfidenceLocal is the confidence score attached to results served from the
// local canonical store. Remote-provider results carry lower scores, so the
// presentation layer can tell authoritative data apart from estimates.
const ConfidenceLocal = 1.0

// MicronutrientConfidenceHigh marks profiles built from local canonical
// columns rather than network-estimated data.
const MicronutrientConfidenceHigh = "high"

// Food is the canonical persisted food record. Macro fields are per 100g and
// always present; micronutrient fields default to zero rather than null so
// downstream aggregation never has to branch on missing values.
type Food struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Brand   string `json:"brand,omitempty"`
	Barcode string `json:"barcode,omitempty"`

	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`

	// ServingSize and ProcessingScore are pointers so an absent value maps to
	// NULL while a stored value of 0 survives a round trip.
	ServingDescription string   `json:"serving_description,omitempty"`
	ServingSize        *float64 `json:"serving_size,omitempty"`

	Micronutrients Micronutrients `json:"micronutrients"`

	ProcessingScore *float64 `json:"processing_score,omitempty"`
	ProcessingGrade string   `json:"processing_grade,omitempty"`
	ProcessingLabel string   `json:"processing_label,omitempty"`

	Verified   bool       `json:"verified"`
	VerifiedBy string     `json:"verified_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// Ingredients in declaration order. IngredientsText is the raw delimited
	// encoding written by the import pipeline; see EncodeIngredients.
	Ingredients     []string   `json:"ingredients,omitempty"`
	IngredientsText string     `json:"-"`
	Additives       []Additive `json:"additives,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Additive is a declared additive on a food record. The read path upstream of
// this table is dormant, but the schema creates and populates it.
type Additive struct {
	Code         string `json:"code"`
	Name         string `json:"name,omitempty"`
	SafetyRating string `json:"safety_rating,omitempty"`
}

// Micronutrients holds the 27 per-100g vitamin and mineral columns.
type Micronutrients struct {
	VitaminA        float64 `json:"vitamin_a"`
	VitaminC        float64 `json:"vitamin_c"`
	VitaminD        float64 `json:"vitamin_d"`
	VitaminE        float64 `json:"vitamin_e"`
	VitaminK        float64 `json:"vitamin_k"`
	Thiamin         float64 `json:"thiamin"`
	Riboflavin      float64 `json:"riboflavin"`
	Niacin          float64 `json:"niacin"`
	PantothenicAcid float64 `json:"pantothenic_acid"`
	VitaminB6       float64 `json:"vitamin_b6"`
	Biotin          float64 `json:"biotin"`
	Folate          float64 `json:"folate"`
	VitaminB12      float64 `json:"vitamin_b12"`
	Choline         float64 `json:"choline"`

	Calcium    float64 `json:"calcium"`
	Chloride   float64 `json:"chloride"`
	Chromium   float64 `json:"chromium"`
	Copper     float64 `json:"copper"`
	Iodine     float64 `json:"iodine"`
	Iron       float64 `json:"iron"`
	Magnesium  float64 `json:"magnesium"`
	Manganese  float64 `json:"manganese"`
	Molybdenum float64 `json:"molybdenum"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
	Selenium   float64 `json:"selenium"`
	Zinc       float64 `json:"zinc"`
}

// ReferenceContext is the default daily-value lookup key attached to derived
// profiles. Personalization belongs to an external collaborator; these values
// are only a nominal key into its recommended-intake tables.
type ReferenceContext struct {
	AgeGroup string `json:"age_group"`
	Gender   string `json:"gender"`
}

// DefaultReference is the nominal reference context for locally derived profiles.
var DefaultReference = ReferenceContext{AgeGroup: "19-50", Gender: "unspecified"}

// MicronutrientProfile is the derived vitamin/mineral view on a search result,
// keyed by canonical nutrient name.
type MicronutrientProfile struct {
	Vitamins       map[string]float64 `json:"vitamins"`
	Minerals       map[string]float64 `json:"minerals"`
	ConfidenceTier string             `json:"confidence_tier"`
	Reference      ReferenceContext   `json:"reference"`
}

// Profile derives the canonical-name keyed micronutrient profile.
func (m Micronutrients) Profile() MicronutrientProfile {
	return MicronutrientProfile{
		Vitamins: map[string]float64{
			"vitamin_a":        m.VitaminA,
			"vitamin_c":        m.VitaminC,
			"vitamin_d":        m.VitaminD,
			"vitamin_e":        m.VitaminE,
			"vitamin_k":        m.VitaminK,
			"thiamin":          m.Thiamin,
			"riboflavin":       m.Riboflavin,
			"niacin":           m.Niacin,
			"pantothenic_acid": m.PantothenicAcid,
			"vitamin_b6":       m.VitaminB6,
			"biotin":           m.Biotin,
			"folate":           m.Folate,
			"vitamin_b12":      m.VitaminB12,
			"choline":          m.Choline,
		},
		Minerals: map[string]float64{
			"calcium":    m.Calcium,
			"chloride":   m.Chloride,
			"chromium":   m.Chromium,
			"copper":     m.Copper,
			"iodine":     m.Iodine,
			"iron":       m.Iron,
			"magnesium":  m.Magnesium,
			"manganese":  m.Manganese,
			"molybdenum": m.Molybdenum,
			"phosphorus": m.Phosphorus,
			"potassium":  m.Potassium,
			"selenium":   m.Selenium,
			"zinc":       m.Zinc,
		},
		ConfidenceTier: MicronutrientConfidenceHigh,
		Reference:      DefaultReference,
	}
}

// FoodSearchResult is the aggregate returned by the query API.
type FoodSearchResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Brand   string `json:"brand,omitempty"`
	Barcode string `json:"barcode,omitempty"`

	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`

	ServingDescription string  `json:"serving_description,omitempty"`
	ServingSize        float64 `json:"serving_size,omitempty"`

	Ingredients []string `json:"ingredients,omitempty"`

	Confidence float64 `json:"confidence"`
	Verified   bool    `json:"verified"`

	ProcessingScore float64 `json:"processing_score,omitempty"`
	ProcessingGrade string  `json:"processing_grade,omitempty"`
	ProcessingLabel string  `json:"processing_label,omitempty"`

	Micronutrients MicronutrientProfile `json:"micronutrients"`
}

// FoodStats is the operational aggregate exposed for debug UI.
type FoodStats struct {
	Total        int `json:"total"`
	WithBarcodes int `json:"with_barcodes"`
	Verified     int `json:"verified"`
}

// EncodeIngredients joins an ordered ingredient list into the delimited string
// form stored on the food row. Comma+space is the canonical encoding any
// import pipeline writing to this store must respect.
func EncodeIngredients(ingredients []string) string {
	return strings.Join(ingredients, ", ")
}

// ParseIngredients splits a delimited ingredient string back into its ordered
// list. Splits on ", " first; if that finds no boundary it falls back to a
// bare-comma split with per-segment trimming, which tolerates import sources
// that drop the space after the comma.
func ParseIngredients(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ", ")
	if len(parts) == 1 {
		parts = strings.Split(raw, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
