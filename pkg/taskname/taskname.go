package taskname

const (
	// Proof tasks
	ProofIssue = "proof:issue"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
