package profiling

import (
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/student"
)

// Assemble joins stored completions with the catalog. Completions whose mission
// or option is no longer in the catalog get an empty impact and are later
// dropped by the noise filter.
func Assemble(completions []student.Completion, catalog mission.Catalog) []Interaction {
	out := make([]Interaction, 0, len(completions))
	for _, c := range completions {
		r := Interaction{
			MissionID:        c.MissionID,
			Concept:          c.Concept,
			ChosenOption:     c.ChosenOption,
			ChosenImpact:     mission.Impact{},
			TimeSpentSeconds: c.TimeSpentSeconds,
			ActiveEventIDs:   c.ActiveEventIDs,
			Flags:            c.Flags,
		}
		if lvl, ok := mission.ParseLevel(c.Level); ok {
			r.Level = lvl
		}

		if m, err := catalog.Get(c.MissionID); err == nil && m != nil {
			if r.Concept == "" {
				r.Concept = m.Concept
			}
			r.Level = m.Level
			r.OptionImpacts = m.OptionImpacts()
			if opt, ok := m.Options[c.ChosenOption]; ok {
				r.ChosenImpact = opt.Impact.Clone()
			}
		}
		out = append(out, r)
	}
	return out
}
