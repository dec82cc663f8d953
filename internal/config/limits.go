package config

const (
	// MaxTitleLength is the maximum length for bookmark and folder titles.
	// Limited to 255 so titles fit a VARCHAR(255) column if one is added.
	MaxTitleLength = 255

	// MaxURLLength is the maximum accepted bookmark URL length.
	MaxURLLength = 2048

	// MaxTreeDepth bounds nesting. Reconstruction stops descending past it
	// and create/move reject placements deeper than it.
	MaxTreeDepth = 64
)
