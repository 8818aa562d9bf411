package matchstartups

import (
	"startup-match-workers/internal/common/validation"
	"startup-match-workers/internal/matching"
	"startup-match-workers/internal/models"
)

type Input struct {
	TransactionID string                 `json:"transactionId"`
	Problema      string                 `json:"problema,omitempty"`
	PerfilCliente string                 `json:"perfilCliente,omitempty"`
	Insights      []string               `json:"insights,omitempty"`
	Filtros       matching.PromptFilters `json:"filtros,omitempty"`
}

type Output struct {
	Status        string `json:"status"`
	MatchCount    int    `json:"matchCount"`
	DroppedCount  int    `json:"droppedCount"`
	NameLeaks     int    `json:"nameLeaks"`
	InsightGerado string `json:"insightGerado"`
	RunID         string `json:"matchingRunId,omitempty"`
}

// GetInputSchema returns the JSON schema job variables must satisfy.
func GetInputSchema() map[string]interface{} {
	stringList := map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"transactionId"},
		"properties": map[string]interface{}{
			"transactionId": map[string]interface{}{"type": "string", "minLength": 1},
			"problema":      map[string]interface{}{"type": "string"},
			"perfilCliente": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"", "pme", "pessoa_fisica"},
			},
			"insights": stringList,
			"filtros": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"categorias":      validation.StringEnum(models.Categories),
					"verticais":       validation.StringEnum(models.Verticals),
					"caracteristicas": stringList,
				},
			},
		},
	}
}
