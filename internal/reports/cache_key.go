package reports

import "strconv"

// CacheKey names the cached summary body for a filter. Writers must
// invalidate both the project-scoped key and the unscoped one.
func CacheKey(projectID *int64) string {
	if projectID == nil {
		return "summary:all"
	}

	return "summary:p:" + strconv.FormatInt(*projectID, 10)
}
