package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/mission"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT MAPPING
// Catalog files are decoded into generic values first so JSON and YAML share
// one mapper. Both the English keys and the legacy French keys are accepted.
// ══════════════════════════════════════════════════════════════════════════════

// fieldAliases lists accepted keys per field, preferred spelling first.
var fieldAliases = map[string][]string{
	"id":          {"id"},
	"title":       {"title", "titre"},
	"concept":     {"concept", "concept_id"},
	"level":       {"level", "niveau"},
	"options":     {"options", "choices", "choix"},
	"events":      {"possible_events", "evenements_possibles"},
	"description": {"description", "message", "texte", "text"},
	"impact":      {"impact"},
	"key":         {"key"},
	"modifies":    {"modifies_choice", "modifie_choix"},
}

func field(obj map[string]any, name string) (any, bool) {
	for _, k := range fieldAliases[name] {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(obj map[string]any, name string) string {
	v, ok := field(obj, name)
	if !ok {
		return ""
	}
	return toString(v)
}

// mapMissions turns a decoded missions document into missions. The
// collection may be a list or an object keyed by title, optionally wrapped in
// a top-level "missions" key. Unknown metrics are reported as warnings.
func mapMissions(doc any) ([]*mission.Mission, []string, error) {
	items, err := collection(doc, "missions")
	if err != nil {
		return nil, nil, err
	}

	var (
		out      []*mission.Mission
		warnings []string
		seen     = make(map[string]struct{}, len(items))
	)
	for _, it := range items {
		m, warns, err := mapMission(it.key, it.obj)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := seen[m.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate mission id %q", m.ID)
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
		warnings = append(warnings, warns...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, warnings, nil
}

func mapMission(key string, obj map[string]any) (*mission.Mission, []string, error) {
	m := &mission.Mission{
		ID:      stringField(obj, "id"),
		Title:   stringField(obj, "title"),
		Concept: stringField(obj, "concept"),
		Options: make(map[string]mission.Option),
	}
	if m.Title == "" {
		m.Title = key
	}
	if m.ID == "" {
		m.ID = m.Title
	}
	if m.ID == "" {
		m.ID = key
	}
	if m.ID == "" {
		return nil, nil, fmt.Errorf("mission without id")
	}
	if m.Title == "" {
		m.Title = m.ID
	}
	if m.Concept == "" {
		return nil, nil, fmt.Errorf("mission %q: missing concept", m.ID)
	}

	rawLevel, _ := field(obj, "level")
	lvl, ok := mission.ParseLevel(toString(rawLevel))
	if !ok {
		return nil, nil, fmt.Errorf("mission %q: invalid level %v", m.ID, rawLevel)
	}
	m.Level = lvl

	var warnings []string
	if raw, ok := field(obj, "options"); ok {
		opts, warns, err := mapOptions(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("mission %q: %w", m.ID, err)
		}
		m.Options = opts
		for _, w := range warns {
			warnings = append(warnings, fmt.Sprintf("mission %q: %s", m.ID, w))
		}
	}

	if raw, ok := field(obj, "events"); ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, nil, fmt.Errorf("mission %q: possible events must be a list", m.ID)
		}
		for _, e := range list {
			if id := toString(e); id != "" {
				m.PossibleEvents = append(m.PossibleEvents, id)
			}
		}
	}
	return m, warnings, nil
}

// mapOptions accepts {"A": {...}} or [{"key": "A", ...}]. List entries
// without a key get A, B, C... by position.
func mapOptions(raw any) (map[string]mission.Option, []string, error) {
	out := make(map[string]mission.Option)
	var warnings []string

	add := func(key string, obj map[string]any) error {
		if _, dup := out[key]; dup {
			return fmt.Errorf("duplicate option %q", key)
		}
		var imp mission.Impact
		if rawImp, ok := field(obj, "impact"); ok {
			var warns []string
			var err error
			imp, warns, err = mapImpact(rawImp)
			if err != nil {
				return fmt.Errorf("option %q: %w", key, err)
			}
			for _, w := range warns {
				warnings = append(warnings, fmt.Sprintf("option %q: %s", key, w))
			}
		}
		out[key] = mission.Option{Key: key, Description: stringField(obj, "description"), Impact: imp}
		return nil
	}

	switch v := raw.(type) {
	case map[string]any:
		for key, o := range v {
			obj, ok := o.(map[string]any)
			if !ok {
				return nil, nil, fmt.Errorf("option %q must be an object", key)
			}
			if err := add(key, obj); err != nil {
				return nil, nil, err
			}
		}
	case []any:
		for i, o := range v {
			obj, ok := o.(map[string]any)
			if !ok {
				return nil, nil, fmt.Errorf("option %d must be an object", i)
			}
			key := stringField(obj, "key")
			if key == "" {
				key = string(rune('A' + i))
			}
			if err := add(key, obj); err != nil {
				return nil, nil, err
			}
		}
	default:
		return nil, nil, fmt.Errorf("options must be an object or a list")
	}
	return out, warnings, nil
}

func mapImpact(raw any) (mission.Impact, []string, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("impact must be an object")
	}
	imp := make(mission.Impact, len(obj))
	var warnings []string
	for k, v := range obj {
		metric, ok := mission.ParseMetric(k)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown metric %q ignored", k))
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, nil, fmt.Errorf("metric %q: not a number", k)
		}
		imp[metric] += f
	}
	return imp, warnings, nil
}

// mapEvents turns a decoded events document into events keyed by id.
func mapEvents(doc any) (map[string]*mission.Event, []string, error) {
	items, err := collection(doc, "events")
	if err != nil {
		return nil, nil, err
	}

	out := make(map[string]*mission.Event, len(items))
	var warnings []string
	for _, it := range items {
		e := &mission.Event{
			ID:             stringField(it.obj, "id"),
			Title:          stringField(it.obj, "title"),
			Description:    stringField(it.obj, "description"),
			ModifiesChoice: make(map[string]mission.Impact),
		}
		if e.ID == "" {
			e.ID = it.key
		}
		if e.ID == "" {
			return nil, nil, fmt.Errorf("event without id")
		}
		if _, dup := out[e.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate event id %q", e.ID)
		}

		if raw, ok := field(it.obj, "modifies"); ok {
			mods, ok := raw.(map[string]any)
			if !ok {
				return nil, nil, fmt.Errorf("event %q: choice modifiers must be an object", e.ID)
			}
			for key, rawImp := range mods {
				imp, warns, err := mapImpact(rawImp)
				if err != nil {
					return nil, nil, fmt.Errorf("event %q option %q: %w", e.ID, key, err)
				}
				for _, w := range warns {
					warnings = append(warnings, fmt.Sprintf("event %q option %q: %s", e.ID, key, w))
				}
				e.ModifiesChoice[key] = imp
			}
		}
		out[e.ID] = e
	}
	return out, warnings, nil
}

type item struct {
	key string
	obj map[string]any
}

// collection unwraps an optional top-level wrapper key and returns the
// entries of a list or an object, in a stable order.
func collection(doc any, wrapper string) ([]item, error) {
	if obj, ok := doc.(map[string]any); ok {
		if inner, ok := obj[wrapper]; ok {
			doc = inner
		}
	}

	switch v := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]item, 0, len(v))
		for i, e := range v {
			obj, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be an object", wrapper, i)
			}
			out = append(out, item{obj: obj})
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]item, 0, len(v))
		for _, k := range keys {
			obj, ok := v[k].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%q] must be an object", wrapper, k)
			}
			out = append(out, item{key: k, obj: obj})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be a list or an object", wrapper)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
