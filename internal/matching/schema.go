package matching

import "startup-match-workers/internal/models"

// MaxMatches bounds how many candidates a single run may return.
const MaxMatches = 5

// MinMatchPercentage is the lowest score the response contract accepts.
const MinMatchPercentage = 50

// BuildMatchingJSONSchema returns the response contract handed to the model
// and used to validate what comes back.
func BuildMatchingJSONSchema() map[string]interface{} {
	str := map[string]interface{}{"type": "string"}

	candidate := map[string]interface{}{
		"type": "object",
		"required": []interface{}{
			"startup_id",
			"match_percentage",
			"resumo_personalizado",
			"pontos_fortes",
			"como_resolve",
			"beneficios_tangiveis",
			"implementacao_estimada",
		},
		"properties": map[string]interface{}{
			"startup_id": str,
			"match_percentage": map[string]interface{}{
				"type":    "number",
				"minimum": MinMatchPercentage,
				"maximum": 100,
			},
			"resumo_personalizado": str,
			"pontos_fortes": map[string]interface{}{
				"type":     "array",
				"minItems": 3,
				"maxItems": 5,
				"items":    str,
			},
			"como_resolve": str,
			"beneficios_tangiveis": map[string]interface{}{
				"type":     "array",
				"minItems": 2,
				"maxItems": 3,
				"items":    str,
			},
			"implementacao_estimada": map[string]interface{}{
				"type": "string",
				"enum": stringsToAny(models.ImplementationBuckets),
			},
		},
	}

	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"matches", "insight_geral"},
		"properties": map[string]interface{}{
			"matches": map[string]interface{}{
				"type":     "array",
				"minItems": 0,
				"maxItems": MaxMatches,
				"items":    candidate,
			},
			"insight_geral": str,
		},
	}
}

func stringsToAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
