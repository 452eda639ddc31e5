package telemetry

import "time"

// Event is a single telemetry record, one of possibly many serialized into
// an events-directory file (spec §3.1, §4.4). Field shape grounded on the
// teacher's plugin.ProgressUpdate / aggregation.PluginStatus pattern: a flat
// JSON-tagged struct carrying a name, a status/level and a free-form
// message.
type Event struct {
	Version     string    `json:"Version"`
	Timestamp   time.Time `json:"Timestamp"`
	TaskName    string    `json:"TaskName"`
	EventLevel  string    `json:"EventLevel"`
	Message     string    `json:"Message"`
	EventPid    int       `json:"EventPid"`
	EventTid    int       `json:"EventTid"`
	OperationID string    `json:"OperationId"`
}

const eventVersion = "1.0"

// NewEvent builds an Event stamped with the current version, time, pid and
// goroutine-local "tid" placeholder (Go has no OS-level TID primitive in
// the standard library; pid is reused there, matching other Go agents in
// the pack that don't expose a thread id either).
func NewEvent(taskName, level, message, operationID string, pid int) Event {
	return Event{
		Version:     eventVersion,
		Timestamp:   time.Now().UTC(),
		TaskName:    taskName,
		EventLevel:  level,
		Message:     message,
		EventPid:    pid,
		EventTid:    pid,
		OperationID: operationID,
	}
}
