package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"startup-match-workers/internal/models"

	"github.com/lib/pq"
)

const listActiveQuery = `
	SELECT id, COALESCE(nome, ''), COALESCE(descricao, ''), COALESCE(categoria, ''),
	       COALESCE(vertical, ''), COALESCE(modelo_negocio, ''), COALESCE(tags, '{}'),
	       COALESCE(preco_base, ''), COALESCE(site, ''), COALESCE(email, ''),
	       COALESCE(whatsapp, ''), COALESCE(linkedin, ''), COALESCE(logo_url, ''), ativo
	FROM startups
	WHERE ativo = true
	ORDER BY nome`

type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (p *PostgresSource) ListActiveProviders(ctx context.Context) ([]models.Startup, error) {
	rows, err := p.db.QueryContext(ctx, listActiveQuery)
	if err != nil {
		return nil, fmt.Errorf("query startups: %w", err)
	}
	defer rows.Close()

	var startups []models.Startup
	for rows.Next() {
		var s models.Startup
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Description, &s.Category,
			&s.Vertical, &s.BusinessModel, pq.Array(&s.Tags),
			&s.BasePrice, &s.Site, &s.Email,
			&s.WhatsApp, &s.LinkedIn, &s.LogoURL, &s.Active,
		); err != nil {
			return nil, fmt.Errorf("scan startup: %w", err)
		}
		startups = append(startups, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate startups: %w", err)
	}

	return startups, nil
}
