package postgres

import "github.com/weboryskills/practice/internal/award"

var (
	_ award.ProgressStore = (*ProgressStore)(nil)
	_ award.ActivityLog   = (*ActivityStore)(nil)
)
