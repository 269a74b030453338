package queue

import (
	"time"

	"github.com/mikestefanello/backlite"
)

// InboxJob is the envelope of a signed inbound request, captured by the
// controller before it acknowledges the remote peer. Signature validation and
// activity handling happen when a worker picks the job up.
type InboxJob struct {
	Method  string
	Host    string
	Path    string
	Headers map[string][]string
	Body    []byte
	// Shared marks envelopes received at the instance-wide inbox.
	Shared bool
}

func (j InboxJob) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "inbox",
		MaxAttempts: 5,
		Backoff:     5 * time.Second,
		Timeout:     10 * time.Second,
		Retention: &backlite.Retention{
			Duration:   12 * time.Hour,
			OnlyFailed: false,
			Data: &backlite.RetainData{
				OnlyFailed: true,
			},
		},
	}
}

// DeliverJob carries one signed outbound activity: the payload, the
// destination inbox and the uri of the account signing the request.
type DeliverJob struct {
	To      string
	From    string
	Payload []byte
}

func (j DeliverJob) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "deliver",
		MaxAttempts: 5,
		Backoff:     5 * time.Second,
		Timeout:     10 * time.Second,
		Retention: &backlite.Retention{
			Duration:   12 * time.Hour,
			OnlyFailed: false,
			Data: &backlite.RetainData{
				OnlyFailed: true,
			},
		},
	}
}
