package catalog

import (
	"encoding/json"
	"maps"
)

// Names maps a two-letter locale code to a display name.
type Names map[string]string

// Entry is one published clip.
type Entry struct {
	Names       Names  `json:"name"`
	Category    string `json:"category"`
	URL         string `json:"url"`
	PublishTime int64  `json:"publish_time"`
}

// Document is the full catalog payload.
type Document struct {
	Categories map[string]Names
	Clips      map[string]Entry
	// Extra holds unrecognized top-level keys so uploads do not drop them.
	Extra map[string]json.RawMessage
}

type documentWire struct {
	Categories map[string]Names `json:"categories"`
	Clips      map[string]Entry `json:"clips"`
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var wire documentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	delete(raw, "categories")
	delete(raw, "clips")
	d.Categories = wire.Categories
	d.Clips = wire.Clips
	d.Extra = raw
	d.ensure()
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+2)
	for key, value := range d.Extra {
		out[key] = value
	}
	categories := d.Categories
	if categories == nil {
		categories = map[string]Names{}
	}
	clips := d.Clips
	if clips == nil {
		clips = map[string]Entry{}
	}
	out["categories"] = categories
	out["clips"] = clips
	return json.Marshal(out)
}

func (d *Document) ensure() {
	if d.Categories == nil {
		d.Categories = make(map[string]Names)
	}
	if d.Clips == nil {
		d.Clips = make(map[string]Entry)
	}
	if d.Extra == nil {
		d.Extra = make(map[string]json.RawMessage)
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := Document{
		Categories: make(map[string]Names, len(d.Categories)),
		Clips:      make(map[string]Entry, len(d.Clips)),
		Extra:      maps.Clone(d.Extra),
	}
	for tag, names := range d.Categories {
		out.Categories[tag] = maps.Clone(names)
	}
	for id, entry := range d.Clips {
		entry.Names = maps.Clone(entry.Names)
		out.Clips[id] = entry
	}
	out.ensure()
	return out
}
