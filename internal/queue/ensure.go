package queue

import "github.com/weboryskills/practice/internal/award"

var _ award.ActivityLog = (*ActivityPublisher)(nil)
