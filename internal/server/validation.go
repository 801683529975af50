package server

// ValidateLimit clamps a pagination limit to [1, maxLimit], using
// defaultLimit when unset
func ValidateLimit(limit, defaultLimit, maxLimit int) int {
	if limit < 1 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// ValidatePage validates pagination page number
func ValidatePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
