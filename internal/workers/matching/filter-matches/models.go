package filtermatches

import (
	"startup-match-workers/internal/common/validation"
	"startup-match-workers/internal/matching"
	"startup-match-workers/internal/models"
)

// Input carries either the matches to filter or the transaction holding them.
type Input struct {
	TransactionID string                 `json:"transactionId,omitempty"`
	Matches       []models.EnrichedMatch `json:"matches,omitempty"`
	FilterState   matching.FilterState   `json:"filterState"`
}

type Output struct {
	Matches      []models.EnrichedMatch `json:"matches"`
	VisibleCount int                    `json:"visibleCount"`
	TotalCount   int                    `json:"totalCount"`
}

func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"anyOf": []interface{}{
			map[string]interface{}{"required": []interface{}{"transactionId"}},
			map[string]interface{}{"required": []interface{}{"matches"}},
		},
		"properties": map[string]interface{}{
			"transactionId": map[string]interface{}{"type": "string", "minLength": 1},
			"matches":       map[string]interface{}{"type": "array", "maxItems": matching.MaxMatches},
			"filterState": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"categorias":      validation.StringEnum(models.Categories),
					"verticais":       validation.StringEnum(models.Verticals),
					"modelos_negocio": validation.StringEnum(models.BusinessModels),
					"match_minimo": map[string]interface{}{
						"type":       "integer",
						"minimum":    0,
						"maximum":    100,
						"multipleOf": 5,
					},
				},
			},
		},
	}
}
