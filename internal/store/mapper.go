package store

import (
	"database/sql"

	"github.com/akeen90/nutrasafe-beta-sub013/internal/model"
)

// resultColumns is the canonical projection for every read path. scanResult
// must stay in sync with this order.
const resultColumns = `id, name, brand, barcode,
	calories, protein, carbs, fat, fiber, sugar, sodium,
	serving_description, serving_size,
	vitamin_a, vitamin_c, vitamin_d, vitamin_e, vitamin_k,
	thiamin, riboflavin, niacin, pantothenic_acid, vitamin_b6,
	biotin, folate, vitamin_b12, choline,
	calcium, chloride, chromium, copper, iodine, iron,
	magnesium, manganese, molybdenum, phosphorus, potassium, selenium, zinc,
	ingredients, verified,
	processing_score, processing_grade, processing_label`

type scannable interface {
	Scan(dest ...any) error
}

// scanResult maps one raw storage row onto the domain aggregate. Identifier
// and name are the minimal viability fields: a row missing either scans to
// nil (skipped by the caller) instead of failing the whole batch. Everything
// else is nullable-checked and collapses to its zero value.
func scanResult(row scannable) (*model.FoodSearchResult, error) {
	var (
		id, name                                 sql.NullString
		brand, barcode                           sql.NullString
		calories, protein, carbs, fat            sql.NullFloat64
		fiber, sugar, sodium                     sql.NullFloat64
		servingDesc                              sql.NullString
		servingSize                              sql.NullFloat64
		micros                                   [27]sql.NullFloat64
		ingredientsText                          sql.NullString
		verified                                 sql.NullBool
		procScore                                sql.NullFloat64
		procGrade, procLabel                     sql.NullString
	)

	dest := []any{&id, &name, &brand, &barcode,
		&calories, &protein, &carbs, &fat, &fiber, &sugar, &sodium,
		&servingDesc, &servingSize,
	}
	for i := range micros {
		dest = append(dest, &micros[i])
	}
	dest = append(dest, &ingredientsText, &verified, &procScore, &procGrade, &procLabel)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if !id.Valid || id.String == "" || !name.Valid || name.String == "" {
		return nil, nil
	}

	m := model.Micronutrients{
		VitaminA:        micros[0].Float64,
		VitaminC:        micros[1].Float64,
		VitaminD:        micros[2].Float64,
		VitaminE:        micros[3].Float64,
		VitaminK:        micros[4].Float64,
		Thiamin:         micros[5].Float64,
		Riboflavin:      micros[6].Float64,
		Niacin:          micros[7].Float64,
		PantothenicAcid: micros[8].Float64,
		VitaminB6:       micros[9].Float64,
		Biotin:          micros[10].Float64,
		Folate:          micros[11].Float64,
		VitaminB12:      micros[12].Float64,
		Choline:         micros[13].Float64,
		Calcium:         micros[14].Float64,
		Chloride:        micros[15].Float64,
		Chromium:        micros[16].Float64,
		Copper:          micros[17].Float64,
		Iodine:          micros[18].Float64,
		Iron:            micros[19].Float64,
		Magnesium:       micros[20].Float64,
		Manganese:       micros[21].Float64,
		Molybdenum:      micros[22].Float64,
		Phosphorus:      micros[23].Float64,
		Potassium:       micros[24].Float64,
		Selenium:        micros[25].Float64,
		Zinc:            micros[26].Float64,
	}

	return &model.FoodSearchResult{
		ID:                 id.String,
		Name:               name.String,
		Brand:              brand.String,
		Barcode:            barcode.String,
		Calories:           calories.Float64,
		Protein:            protein.Float64,
		Carbs:              carbs.Float64,
		Fat:                fat.Float64,
		Fiber:              fiber.Float64,
		Sugar:              sugar.Float64,
		Sodium:             sodium.Float64,
		ServingDescription: servingDesc.String,
		ServingSize:        servingSize.Float64,
		Ingredients:        model.ParseIngredients(ingredientsText.String),
		Confidence:         model.ConfidenceLocal,
		Verified:           verified.Bool,
		ProcessingScore:    procScore.Float64,
		ProcessingGrade:    procGrade.String,
		ProcessingLabel:    procLabel.String,
		Micronutrients:     m.Profile(),
	}, nil
}
