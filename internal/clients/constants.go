package clients

import "time"

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 1 * time.Second
	USER_AGENT      = "complaintflow-client/1.0 (+https://github.com/spacesedan/complaintflow)"

	ORACLE_CACHE_PREFIX = "oracle"
)

const (
	timeoutMessage      = "AI service request timed out, please try again"
	connectivityMessage = "connection to the AI service was lost, please check your network"
	serviceMessage      = "AI service temporarily unavailable"
)
