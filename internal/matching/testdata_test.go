package matching

import (
	"context"
	"sync/atomic"

	"startup-match-workers/internal/models"
)

type staticSupplier struct {
	startups []models.Startup
	err      error
	calls    atomic.Int32
}

func (s *staticSupplier) ListActiveProviders(context.Context) ([]models.Startup, error) {
	s.calls.Add(1)
	return s.startups, s.err
}

func sampleCatalog() []models.Startup {
	return []models.Startup{
		{
			ID:            "s-1",
			Name:          "Contaflow",
			Description:   "Automatiza a conciliação bancária e a emissão de notas fiscais.",
			Category:      "financeiro",
			Vertical:      "fintech",
			BusinessModel: "b2b",
			Tags:          []string{" Notas Fiscais", "conciliação", "notas fiscais", ""},
			BasePrice:     "R$ 99/mês",
			Active:        true,
		},
		{
			ID:          "s-2",
			Name:        "Vendi",
			Description: "CRM simples para pequenas equipes comerciais.",
			Category:    "vendas",
			Active:      true,
		},
		{
			ID:            "s-3",
			Name:          "Talentia",
			Description:   "Recrutamento com triagem automática de currículos.",
			Category:      "recursos_humanos",
			Vertical:      "hrtech",
			BusinessModel: "b2b",
			Active:        true,
		},
	}
}

func candidate(id string, pct float64) MatchCandidate {
	return MatchCandidate{
		StartupID:             id,
		MatchPercentage:       pct,
		ResumoPersonalizado:   "Esta solução reduz o trabalho manual.",
		PontosFortes:          []string{"a", "b", "c"},
		ComoResolve:           "A plataforma integra com o banco.",
		BeneficiosTangiveis:   []string{"x", "y"},
		ImplementacaoEstimada: models.ImplementationImmediate,
	}
}

const validAnswer = `{
  "matches": [
    {
      "startup_id": "s-1",
      "match_percentage": 87.6,
      "resumo_personalizado": "Esta solução automatiza a conciliação.",
      "pontos_fortes": ["rápida", "integrada", "barata"],
      "como_resolve": "A plataforma lê o extrato e concilia.",
      "beneficios_tangiveis": ["menos horas", "menos erros"],
      "implementacao_estimada": "imediato"
    },
    {
      "startup_id": "ghost",
      "match_percentage": 70,
      "resumo_personalizado": "texto",
      "pontos_fortes": ["a", "b", "c"],
      "como_resolve": "texto",
      "beneficios_tangiveis": ["a", "b"],
      "implementacao_estimada": "1-3 meses"
    }
  ],
  "insight_geral": "O gargalo é financeiro."
}`
