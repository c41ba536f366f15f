// Package recommendation gates the mission catalog by prerequisite tiers and
// ranks the eligible pool against a learning goal.
package recommendation

import (
	"sort"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACKS
// ══════════════════════════════════════════════════════════════════════════════

// TrackInfo describes one specialization and the concepts relevant to it.
type TrackInfo struct {
	Track    student.Track
	Label    string
	Concepts []string
}

var tracks = map[student.Track]TrackInfo{
	student.TrackPortfolioManagement: {
		Track: student.TrackPortfolioManagement,
		Label: "Gestionnaire de Portefeuille",
		Concepts: []string{
			"Marché Boursier",
			"Marché des Changes",
			"Analyse Technique Fondamentale",
			"Allocation d'Actifs Stratégique",
			"Gestion des Risques de Portefeuille",
			"Marchés Dérivés et Couverture",
			"Performance et Attribution",
		},
	},
	student.TrackFinancialAnalyst: {
		Track: student.TrackFinancialAnalyst,
		Label: "Analyste financier",
		Concepts: []string{
			"Finance d'entreprise",
			"Évaluation d’entreprise",
			"Finance Sectorielle",
			"Analyse Fondamentale des Entreprises",
			"Modélisation Financière",
			"Analyse sectorielle",
			"Analyse de Crédit (Buy-side)",
			"Recherche et recommandations",
		},
	},
	student.TrackInvestmentBanker: {
		Track: student.TrackInvestmentBanker,
		Label: "Banquier d'affaires",
		Concepts: []string{
			"Gestion de Trésorerie & Financement",
			"Gestion des Risques Transactionnels",
			"Structuration de financements",
			"Origination et développement commercial",
			"Due Diligence et Analyse Crédit",
			"Marchés de capitaux",
			"Conseil stratégique",
			"Relations investisseurs",
			"Refinancement et restructuration",
			"Financement de projet",
			"Conformité et Réglementation",
			"Innovation financière",
		},
	},
}

// LookupTrack returns the track definition. ok is false for unknown tracks.
func LookupTrack(t student.Track) (TrackInfo, bool) {
	info, ok := tracks[t.Normalize()]
	return info, ok
}

// ResolveTrack returns the track definition, falling back to the default track
// when t is empty or unknown.
func ResolveTrack(t student.Track) TrackInfo {
	if info, ok := LookupTrack(t); ok {
		return info
	}
	return tracks[student.DefaultTrack]
}

// Tracks returns every known track, ordered by identifier.
func Tracks() []TrackInfo {
	out := make([]TrackInfo, 0, len(tracks))
	for _, info := range tracks {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Track < out[j].Track })
	return out
}

// AllowedConcepts returns the track's concepts intersected with whitelist.
// An empty whitelist leaves the set unchanged; it never adds concepts.
// The result is sorted.
func (ti TrackInfo) AllowedConcepts(whitelist []string) []string {
	allowed := make(map[string]struct{}, len(ti.Concepts))
	for _, c := range ti.Concepts {
		allowed[c] = struct{}{}
	}
	if len(whitelist) > 0 {
		keep := make(map[string]struct{}, len(whitelist))
		for _, c := range whitelist {
			if _, ok := allowed[c]; ok {
				keep[c] = struct{}{}
			}
		}
		allowed = keep
	}
	out := make([]string, 0, len(allowed))
	for c := range allowed {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
