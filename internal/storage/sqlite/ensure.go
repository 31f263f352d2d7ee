package sqlite

import "github.com/weboryskills/practice/internal/award"

// Ensure SQLite stores implement the award interfaces.
var (
	_ award.ProgressStore = (*ProgressStore)(nil)
	_ award.ActivityLog   = (*ActivityStore)(nil)
)
