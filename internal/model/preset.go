package model

// FilterPreset is a named, immutable partial edit used as a blend target.
type FilterPreset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"` // UI swatch colour
	Values      Overrides `json:"values"`
}
