package matching

import (
	"fmt"
	"sort"
	"strings"

	"startup-match-workers/internal/models"
)

// Placeholders the model must use instead of a provider name.
const (
	PlaceholderSolution = "esta solução"
	PlaceholderPlatform = "a plataforma"
)

const notAvailable = "N/A"

// PromptFilters are the optional preferences the client stated on the search form.
type PromptFilters struct {
	Categories []string `json:"categorias,omitempty"`
	Verticals  []string `json:"verticais,omitempty"`
	Traits     []string `json:"caracteristicas,omitempty"`
}

func (f PromptFilters) empty() bool {
	return len(f.Categories) == 0 && len(f.Verticals) == 0 && len(f.Traits) == 0
}

// BuildMatchingPrompt renders the matching instruction for one search.
// The output depends only on its arguments.
func BuildMatchingPrompt(problem string, providers []models.Startup, profile models.ClientProfile, insights []string, filters PromptFilters) string {
	var b strings.Builder

	b.WriteString("Você é um consultor especialista em inovação que conecta clientes às startups brasileiras mais adequadas.\n")
	b.WriteString("Objetivo: analisar o problema relatado e recomendar, dentre as startups do catálogo, as que melhor o resolvem.\n\n")

	b.WriteString("## Perfil do cliente\n")
	b.WriteString(profile.Description())
	b.WriteString("\n\n")

	b.WriteString("## Problema relatado\n")
	b.WriteString(problem)
	b.WriteString("\n\n")

	if lines := nonBlank(insights); len(lines) > 0 {
		b.WriteString("## Informações adicionais\n")
		for _, line := range lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if !filters.empty() {
		b.WriteString("## Preferências informadas\n")
		writeHint(&b, "Categorias preferidas", filters.Categories)
		writeHint(&b, "Verticais preferidas", filters.Verticals)
		writeHint(&b, "Características desejadas", filters.Traits)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Catálogo de startups (%d)\n", len(providers))
	for i, p := range providers {
		fmt.Fprintf(&b, "### Startup %d\n", i+1)
		fmt.Fprintf(&b, "- ID: %s\n", p.ID)
		fmt.Fprintf(&b, "- Categoria: %s\n", orNA(p.Category))
		fmt.Fprintf(&b, "- Vertical: %s\n", orNA(p.Vertical))
		fmt.Fprintf(&b, "- Modelo de negócio: %s\n", orNA(p.BusinessModel))
		fmt.Fprintf(&b, "- Descrição: %s\n", orNA(p.Description))
		tags := NormalizeTags(p.Tags)
		if len(tags) == 0 {
			fmt.Fprintf(&b, "- Tags: %s\n", notAvailable)
		} else {
			fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(tags, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Protocolo de seleção\n")
	b.WriteString("1. Pré-filtragem: compare o problema primeiro com a vertical, depois com a categoria e depois com o modelo de negócio de cada startup; em seguida analise a descrição e, por último, as tags.\n")
	b.WriteString("2. Pontuação ponderada de 0 a 100: relevância funcional para o problema (45%), aderência ao perfil do cliente (35%), custo-benefício (15%) e facilidade de adoção (5%).\n")
	fmt.Fprintf(&b, "3. Mantenha apenas startups com pontuação estritamente acima de %d, no máximo %d, ordenadas da maior para a menor pontuação.\n", MinMatchPercentage, MaxMatches)
	fmt.Fprintf(&b, "4. Se nenhuma startup ultrapassar %d, retorne a lista matches vazia e explique o motivo em insight_geral.\n\n", MinMatchPercentage)

	b.WriteString("## Regras de redação\n")
	fmt.Fprintf(&b, "- Nunca escreva o nome de nenhuma startup nos textos gerados. Refira-se a ela como \"%s\" ou \"%s\".\n", PlaceholderSolution, PlaceholderPlatform)
	b.WriteString("- Copie o campo startup_id exatamente como aparece no catálogo.\n")
	b.WriteString("- pontos_fortes deve ter de 3 a 5 itens e beneficios_tangiveis de 2 a 3 itens.\n")
	fmt.Fprintf(&b, "- implementacao_estimada deve ser um destes valores: %s.\n", strings.Join(models.ImplementationBuckets, ", "))
	b.WriteString("- Escreva em português do Brasil e responda somente com o JSON pedido.\n")

	return b.String()
}

// NormalizeTags lower-cases, trims, de-duplicates and sorts a tag list.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func writeHint(b *strings.Builder, label string, values []string) {
	if vs := nonBlank(values); len(vs) > 0 {
		fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(vs, ", "))
	}
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}
