package matching

import (
	"fmt"
	"regexp"
	"strings"

	"startup-match-workers/internal/common/metrics"
	"startup-match-workers/internal/models"
)

// LeakMode controls what happens when generated text names the startup it describes.
type LeakMode string

const (
	LeakModeOff    LeakMode = "off"
	LeakModeFlag   LeakMode = "flag"
	LeakModeRedact LeakMode = "redact"
)

// Names shorter than this match too many ordinary words to be scanned.
const minLeakNameLength = 3

// ParseLeakMode maps a config value to a LeakMode; empty means flag.
func ParseLeakMode(s string) (LeakMode, error) {
	switch LeakMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LeakModeFlag:
		return LeakModeFlag, nil
	case LeakModeOff:
		return LeakModeOff, nil
	case LeakModeRedact:
		return LeakModeRedact, nil
	}
	return "", fmt.Errorf("unknown name leak mode %q", s)
}

// LeakReport lists the startups whose own name appeared in their generated text.
type LeakReport struct {
	StartupIDs []string
}

func (r LeakReport) Count() int { return len(r.StartupIDs) }

// CheckNameLeaks scans the generated fields of every match for the startup's own name.
// In flag mode the match is marked; in redact mode the name is also replaced.
// The input slice is not modified.
func CheckNameLeaks(matches []models.EnrichedMatch, mode LeakMode) ([]models.EnrichedMatch, LeakReport) {
	out := make([]models.EnrichedMatch, len(matches))
	copy(out, matches)

	var report LeakReport
	if mode == LeakModeOff {
		return out, report
	}

	for i := range out {
		m := &out[i]
		re := namePattern(m.Nome)
		if re == nil || !mentions(re, m) {
			continue
		}
		report.StartupIDs = append(report.StartupIDs, m.StartupID)
		metrics.NameLeaks.Inc()
		m.NomeMencionado = true

		if mode == LeakModeRedact {
			m.ResumoPersonalizado = redact(re, m.ResumoPersonalizado)
			m.ComoResolve = redact(re, m.ComoResolve)
			m.PontosFortes = replaceAll(re, m.PontosFortes)
			m.BeneficiosTangiveis = replaceAll(re, m.BeneficiosTangiveis)
		}
	}
	return out, report
}

// namePattern matches the name as a whole word. RE2's \b only knows ASCII, so
// the boundaries are spelled out to keep accented letters inside words.
func namePattern(name string) *regexp.Regexp {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < minLeakNameLength {
		return nil
	}
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])(` + regexp.QuoteMeta(name) + `)($|[^\p{L}\p{N}])`)
}

// Adjacent mentions share a separator, so one pass can leave every second one behind.
const maxRedactPasses = 4

func redact(re *regexp.Regexp, s string) string {
	for i := 0; i < maxRedactPasses && re.MatchString(s); i++ {
		s = re.ReplaceAllString(s, "${1}"+PlaceholderSolution+"${3}")
	}
	return s
}

func mentions(re *regexp.Regexp, m *models.EnrichedMatch) bool {
	if re.MatchString(m.ResumoPersonalizado) || re.MatchString(m.ComoResolve) {
		return true
	}
	for _, s := range m.PontosFortes {
		if re.MatchString(s) {
			return true
		}
	}
	for _, s := range m.BeneficiosTangiveis {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func replaceAll(re *regexp.Regexp, in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = redact(re, s)
	}
	return out
}
