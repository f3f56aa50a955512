package preset

import (
	"errors"

	"github.com/aliskhannn/lumina/internal/model"
)

// ErrPresetNotFound is returned when no preset has the requested id.
var ErrPresetNotFound = errors.New("preset not found")

const (
	// NoneID identifies the "original" entry that maps back to neutral.
	NoneID = "none"
	// AutoPortraID identifies the one-click enhancement preset.
	AutoPortraID = "auto-portra"
)

var catalog = []model.FilterPreset{
	{
		ID:          NoneID,
		Name:        "原图",
		Description: "Original",
		Color:       "#e5e7eb",
		Values: model.Overrides{
			model.Exposure:   0,
			model.Contrast:   0,
			model.Saturation: 0,
			model.Warmth:     0,
			model.Tint:       0,
			model.Blur:       0,
			model.Vignette:   0,
			model.Sharpness:  0,
			model.Rotate:     0,
		},
	},
	{
		ID:          "portra-400",
		Name:        "Portra 400",
		Description: "人像首选，通透肤色",
		Color:       "#fca5a5",
		Values: model.Overrides{
			model.Exposure:   8,
			model.Contrast:   -5,
			model.Saturation: 12,
			model.Warmth:     10,
			model.Tint:       -6,
			model.Sharpness:  5,
		},
	},
	{
		ID:          "kodak-gold",
		Name:        "Gold 200",
		Description: "经典暖调，生活感",
		Color:       "#fbbf24",
		Values: model.Overrides{
			model.Exposure:   5,
			model.Contrast:   8,
			model.Saturation: 18,
			model.Warmth:     20,
			model.Tint:       0,
			model.Vignette:   10,
		},
	},
	{
		ID:          "fuji-pro",
		Name:        "Fuji 400H",
		Description: "日系清凉，偏青绿",
		Color:       "#86efac",
		Values: model.Overrides{
			model.Exposure:   10,
			model.Contrast:   5,
			model.Saturation: 5,
			model.Warmth:     -5,
			model.Tint:       12,
		},
	},
	{
		ID:          "cinestill",
		Name:        "Cinestill 800",
		Description: "电影夜景，冷调光晕",
		Color:       "#93c5fd",
		Values: model.Overrides{
			model.Exposure:   0,
			model.Contrast:   15,
			model.Saturation: -5,
			model.Warmth:     -15,
			model.Tint:       -5,
			model.Vignette:   20,
		},
	},
	{
		ID:          "ilford-bw",
		Name:        "Ilford HP5",
		Description: "经典黑白，高宽容度",
		Color:       "#525252",
		Values: model.Overrides{
			model.Saturation: -100,
			model.Contrast:   20,
			model.Exposure:   5,
			model.Vignette:   25,
			model.Sharpness:  10,
		},
	},
}

// autoPortra is kept out of the browsable catalog; it backs the one-click
// enhancement and the batch policy.
var autoPortra = model.FilterPreset{
	ID:          AutoPortraID,
	Name:        "Portra Auto",
	Description: "AI 智能胶片优化",
	Color:       "#ff7e5f",
	Values: model.Overrides{
		model.Exposure:   12,
		model.Contrast:   -8,
		model.Saturation: 15,
		model.Warmth:     15,
		model.Tint:       -8,
		model.Vignette:   8,
	},
}

// Catalog returns the browsable presets in display order. The result is a
// deep copy; callers may not mutate the process-wide definitions.
func Catalog() []model.FilterPreset {
	out := make([]model.FilterPreset, len(catalog))
	for i, p := range catalog {
		out[i] = clone(p)
	}
	return out
}

// ByID looks a preset up in the catalog, including the auto-enhance preset.
func ByID(id string) (model.FilterPreset, error) {
	if id == AutoPortraID {
		return clone(autoPortra), nil
	}
	for _, p := range catalog {
		if p.ID == id {
			return clone(p), nil
		}
	}
	return model.FilterPreset{}, ErrPresetNotFound
}

// AutoPortra returns the one-click enhancement preset.
func AutoPortra() model.FilterPreset {
	return clone(autoPortra)
}

func clone(p model.FilterPreset) model.FilterPreset {
	p.Values = p.Values.Clone()
	return p
}
