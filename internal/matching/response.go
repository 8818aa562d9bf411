package matching

import (
	"encoding/json"
	"fmt"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/internal/common/validation"
)

// MatchCandidate is one entry of the model answer, before it is joined with the catalog.
type MatchCandidate struct {
	StartupID             string   `json:"startup_id"`
	MatchPercentage       float64  `json:"match_percentage"`
	ResumoPersonalizado   string   `json:"resumo_personalizado"`
	PontosFortes          []string `json:"pontos_fortes"`
	ComoResolve           string   `json:"como_resolve"`
	BeneficiosTangiveis   []string `json:"beneficios_tangiveis"`
	ImplementacaoEstimada string   `json:"implementacao_estimada"`
}

// MatchingResponse is the whole structured answer of one matching call.
type MatchingResponse struct {
	Matches      []MatchCandidate `json:"matches"`
	InsightGeral string           `json:"insight_geral"`
}

var responseSchema = BuildMatchingJSONSchema()

// ValidateResponse checks a raw answer against the response contract.
func ValidateResponse(raw json.RawMessage) error {
	res, err := validation.ValidateDocument(responseSchema, raw)
	if err != nil {
		return apperrors.NewLLMResponseInvalidError(err.Error())
	}
	if !res.Valid {
		return apperrors.NewLLMResponseInvalidError(res.Summary())
	}
	return nil
}

// DecodeResponse validates raw against the contract and decodes it.
func DecodeResponse(raw json.RawMessage) (*MatchingResponse, error) {
	if err := ValidateResponse(raw); err != nil {
		return nil, err
	}

	var resp MatchingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperrors.NewLLMResponseInvalidError(fmt.Sprintf("decode: %v", err))
	}
	if resp.Matches == nil {
		resp.Matches = []MatchCandidate{}
	}
	return &resp, nil
}
