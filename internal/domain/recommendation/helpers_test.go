package recommendation

import (
	"sort"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
)

// memCatalog is an in-memory catalog for tests.
type memCatalog struct {
	missions map[string]*mission.Mission
	events   map[string]*mission.Event
}

func newMemCatalog(missions ...*mission.Mission) *memCatalog {
	c := &memCatalog{
		missions: make(map[string]*mission.Mission),
		events:   make(map[string]*mission.Event),
	}
	for _, m := range missions {
		c.missions[m.ID] = m
	}
	return c
}

func (c *memCatalog) withEvents(events ...*mission.Event) *memCatalog {
	for _, e := range events {
		c.events[e.ID] = e
	}
	return c
}

func (c *memCatalog) Get(id string) (*mission.Mission, error) {
	if m, ok := c.missions[id]; ok {
		return m, nil
	}
	return nil, shared.ErrMissionNotFound
}

func (c *memCatalog) List() []*mission.Mission {
	out := make([]*mission.Mission, 0, len(c.missions))
	for _, m := range c.missions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *memCatalog) ListByConcept(concept string) []*mission.Mission {
	var out []*mission.Mission
	for _, m := range c.List() {
		if m.Concept == concept {
			out = append(out, m)
		}
	}
	return out
}

func (c *memCatalog) GetEvent(id string) (*mission.Event, error) {
	if e, ok := c.events[id]; ok {
		return e, nil
	}
	return nil, shared.ErrEventNotFound
}

// mk builds a two-option mission: a calm option A and a risky option B.
func mk(id, concept string, lvl mission.Level) *mission.Mission {
	return &mission.Mission{
		ID:      id,
		Title:   id,
		Concept: concept,
		Level:   lvl,
		Options: map[string]mission.Option{
			"A": {Key: "A", Impact: mission.Impact{mission.MetricStress: -2, mission.MetricCashflow: 1}},
			"B": {Key: "B", Impact: mission.Impact{mission.MetricStress: 3, mission.MetricProfitability: 4, mission.MetricCashflow: -2}},
		},
	}
}

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
