package kafka

// Topic definitions for Kafka event streaming
const (
	// Review handoff
	TopicReviewsRequested = "reviews.requested"
	TopicReviewsCompleted = "reviews.completed"

	// Response lifecycle
	TopicResponsesPublished = "responses.published"

	// Crisis events
	TopicCrisisAlerts = "crisis.alerts"

	// Run events
	TopicWorkflowCompleted = "workflow.completed"
)
