// internal/models/match.go
package models

// EnrichedMatch is a model-generated match joined with the catalog record it refers to.
type EnrichedMatch struct {
	StartupID             string   `json:"startup_id"`
	MatchPercentage       int      `json:"match_percentage"`
	ResumoPersonalizado   string   `json:"resumo_personalizado"`
	PontosFortes          []string `json:"pontos_fortes"`
	ComoResolve           string   `json:"como_resolve"`
	BeneficiosTangiveis   []string `json:"beneficios_tangiveis"`
	ImplementacaoEstimada string   `json:"implementacao_estimada"`

	Nome          string `json:"nome"`
	Categoria     string `json:"categoria"`
	Vertical      string `json:"vertical,omitempty"`
	ModeloNegocio string `json:"modelo_negocio,omitempty"`
	Descricao     string `json:"descricao"`
	Site          string `json:"site,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	PrecoBase     string `json:"preco_base,omitempty"`

	// NomeMencionado is set when generated text names the startup.
	NomeMencionado bool `json:"nome_mencionado,omitempty"`
}
