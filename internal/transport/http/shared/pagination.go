package shared

import (
	"net/http"
	"strconv"
)

// HardLimit caps every listing endpoint regardless of what the
// handler allows. The widest page in this API is the audit log at 500
// rows.
const HardLimit = 500

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset query parameters. Absent or
// malformed values fall back to the handler's default, and the limit
// is clamped to maxLimit and HardLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()
	page := Pagination{Limit: defaultLimit}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		page.Offset = v
	}
	if maxLimit <= 0 || maxLimit > HardLimit {
		maxLimit = HardLimit
	}
	if page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page
}
