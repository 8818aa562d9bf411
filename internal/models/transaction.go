// internal/models/transaction.go
package models

import "time"

// Payment statuses of a transaction.
const (
	PaymentPending   = "pendente"
	PaymentPaid      = "pago"
	PaymentCancelled = "cancelado"
)

// Transaction is the search session record owned by the entity store.
// Workers only read and update the fields below.
type Transaction struct {
	ID                    string          `json:"id" db:"id"`
	UserID                string          `json:"userId" db:"user_id"`
	ProblemaRelatado      string          `json:"problema_relatado" db:"problema_relatado"`
	PerfilCliente         ClientProfile   `json:"perfil_cliente" db:"perfil_cliente"`
	StartupsSugeridas     []EnrichedMatch `json:"startups_sugeridas" db:"startups_sugeridas"`
	InsightGerado         string          `json:"insight_gerado" db:"insight_gerado"`
	StartupsSelecionadas  []string        `json:"startups_selecionadas" db:"startups_selecionadas"`
	QuantidadeSelecionada int             `json:"quantidade_selecionada" db:"quantidade_selecionada"`
	ValorTotal            float64         `json:"valor_total" db:"valor_total"`
	StartupsDetalhadas    []EnrichedMatch `json:"startups_detalhadas" db:"startups_detalhadas"`
	StatusPagamento       string          `json:"status_pagamento" db:"status_pagamento"`
	CreatedAt             time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time       `json:"updatedAt" db:"updated_at"`
}

// FindSuggestion returns the suggested match with the given startup id.
func (t *Transaction) FindSuggestion(startupID string) (EnrichedMatch, bool) {
	for _, m := range t.StartupsSugeridas {
		if m.StartupID == startupID {
			return m, true
		}
	}
	return EnrichedMatch{}, false
}
