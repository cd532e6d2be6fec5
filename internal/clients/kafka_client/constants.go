package kafka_client

import "time"

const (
	KAFKA_TOPIC_COMPLAINT_EVENTS = "complaint-events" // lifecycle events for stored complaints
)

const (
	MAX_RETRIES      = 3
	RETRY_DELAY      = 200 * time.Millisecond
	FLUSH_TIMEOUT_MS = 5000
)
