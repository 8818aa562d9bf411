// internal/models/startup.go
package models

import "strings"

// Startup is a catalogued solution provider eligible for recommendation.
type Startup struct {
	ID            string   `json:"id" db:"id"`
	Name          string   `json:"nome" db:"nome"`
	Description   string   `json:"descricao" db:"descricao"`
	Category      string   `json:"categoria" db:"categoria"`
	Vertical      string   `json:"vertical,omitempty" db:"vertical"`
	BusinessModel string   `json:"modelo_negocio,omitempty" db:"modelo_negocio"`
	Tags          []string `json:"tags,omitempty" db:"tags"`
	BasePrice     string   `json:"preco_base,omitempty" db:"preco_base"`
	Site          string   `json:"site,omitempty" db:"site"`
	Email         string   `json:"email,omitempty" db:"email"`
	WhatsApp      string   `json:"whatsapp,omitempty" db:"whatsapp"`
	LinkedIn      string   `json:"linkedin,omitempty" db:"linkedin"`
	LogoURL       string   `json:"logo_url,omitempty" db:"logo_url"`
	Active        bool     `json:"ativo" db:"ativo"`
}

// Categories lists the fixed startup categories.
var Categories = []string{
	"gestao",
	"financeiro",
	"marketing",
	"vendas",
	"recursos_humanos",
	"tecnologia",
	"operacoes",
	"juridico",
}

// Verticals lists the market verticals a startup may declare.
var Verticals = []string{
	"agritech", "edtech", "fintech", "healthtech", "legaltech", "retailtech",
	"logtech", "proptech", "insurtech", "hrtech", "martech", "foodtech",
	"construtech", "govtech", "cleantech", "energytech", "mobilidade", "turismo",
	"varejo", "industria", "saas", "ecommerce", "ciberseguranca",
	"inteligencia_artificial", "biotech", "fashiontech", "sporttech", "adtech",
	"regtech",
}

// BusinessModels lists the supported business models.
var BusinessModels = []string{"b2b", "b2c", "b2b2c", "marketplace"}

// Implementation time buckets returned by the matching model.
const (
	ImplementationImmediate = "imediato"
	ImplementationWeeks     = "1-2 semanas"
	ImplementationMonth     = "3-4 semanas"
	ImplementationMonths    = "1-3 meses"
)

// ImplementationBuckets is the closed set of implementation estimates.
var ImplementationBuckets = []string{
	ImplementationImmediate,
	ImplementationWeeks,
	ImplementationMonth,
	ImplementationMonths,
}

// DefaultImplementation is used when the model omits an estimate.
const DefaultImplementation = ImplementationWeeks

// ClientProfile tags who is looking for a solution.
type ClientProfile string

const (
	ProfileSME        ClientProfile = "pme"
	ProfileIndividual ClientProfile = "pessoa_fisica"
)

// Valid reports whether the profile is one of the known tags.
func (p ClientProfile) Valid() bool {
	return p == ProfileSME || p == ProfileIndividual
}

// Description returns the human description interpolated into prompts.
func (p ClientProfile) Description() string {
	switch p {
	case ProfileIndividual:
		return "Pessoa física (profissional autônomo ou consumidor final), com orçamento reduzido, " +
			"pouca equipe técnica e necessidade de soluções simples de adotar."
	default:
		return "Pequena ou média empresa (PME), com equipe enxuta, orçamento controlado " +
			"e foco em ganhos rápidos de produtividade e receita."
	}
}

// IsKnown reports whether value belongs to set, ignoring case and surrounding spaces.
func IsKnown(set []string, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
