package models

import "time"

// DefaultCategoryIcon is used when a category is created without an icon.
const DefaultCategoryIcon = "📦"

// Category groups bills inside a space.
// Deactivating a category never touches the bills that reference it.
type Category struct {
	Record

	// SpaceID is the owning space.
	SpaceID string

	// Name is the display name (e.g., "Food", "Rent").
	Name string

	// Icon is a single emoji.
	Icon string

	// CreatedBy is the user who created the category.
	CreatedBy string
}

// NewCategory creates an active category stamped at now.
func NewCategory(spaceID, name, icon, createdBy string, now time.Time) *Category {
	if icon == "" {
		icon = DefaultCategoryIcon
	}
	return &Category{
		Record:    newRecord(now),
		SpaceID:   spaceID,
		Name:      name,
		Icon:      icon,
		CreatedBy: createdBy,
	}
}
