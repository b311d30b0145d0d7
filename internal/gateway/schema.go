package gateway

import "google.golang.org/genai"

// AnalysisSchema is the response shape requested for meal photo analysis.
// Field names match what nutrition.Ingest validates.
func AnalysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":           {Type: genai.TypeString},
						"portionGrams":   {Type: genai.TypeNumber},
						"kcalPer100g":    {Type: genai.TypeNumber},
						"proteinPer100g": {Type: genai.TypeNumber},
						"fatPer100g":     {Type: genai.TypeNumber},
						"carbsPer100g":   {Type: genai.TypeNumber},
						"confidence": {
							Type: genai.TypeString,
							Enum: []string{"low", "medium", "high"},
						},
					},
					Required: []string{
						"name", "portionGrams", "kcalPer100g", "proteinPer100g",
						"fatPer100g", "carbsPer100g", "confidence",
					},
				},
			},
		},
		Required: []string{"items"},
	}
}
