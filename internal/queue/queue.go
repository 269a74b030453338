package queue

import (
	"context"
	"errors"
	"net/url"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/gomarks/internal/federation"
)

// Bus enqueues federation jobs for asynchronous, at-least-once processing.
type Bus interface {
	Enqueue(task backlite.Task) error
}

// InboxProcessor validates, classifies and handles one inbound envelope.
type InboxProcessor interface {
	ProcessInbox(ctx context.Context, job InboxJob) error
}

// Deliverer signs and POSTs one activity payload to a remote inbox.
type Deliverer interface {
	Deliver(ctx context.Context, payload []byte, to, from *url.URL) error
}

type busImpl struct {
	client *backlite.Client
}

func NewBus(client *backlite.Client) Bus {
	return &busImpl{client: client}
}

func (b *busImpl) Enqueue(task backlite.Task) error {
	_, err := b.client.Add(task).Save()
	if err != nil {
		log.Error().Err(err).Msg("adding task to queue")
	}
	return err
}

// Register wires the queue processors and starts the workers. Errors marked
// unrecoverable are logged and consumed so backlite never retries them;
// everything else is handed back and retried under the queue's own policy.
func Register(ctx context.Context, client *backlite.Client, inbox InboxProcessor, deliverer Deliverer) {
	client.Register(backlite.NewQueue[InboxJob](processInbox(inbox)))
	client.Register(backlite.NewQueue[DeliverJob](processDeliver(deliverer)))
	client.Start(ctx)
	log.Info().Msg("started task queues")
}

func processInbox(p InboxProcessor) func(context.Context, InboxJob) error {
	return func(ctx context.Context, job InboxJob) error {
		err := p.ProcessInbox(ctx, job)
		if errors.Is(err, federation.ErrUnrecoverable) {
			log.Error().Err(err).Str("path", job.Path).Msg("dead-lettering inbound activity")
			return nil
		}
		return err
	}
}

func processDeliver(d Deliverer) func(context.Context, DeliverJob) error {
	return func(ctx context.Context, job DeliverJob) error {
		to, err := url.Parse(job.To)
		if err != nil {
			log.Error().Err(err).Str("to", job.To).Msg("dead-lettering undeliverable activity")
			return nil
		}

		from, err := url.Parse(job.From)
		if err != nil {
			log.Error().Err(err).Str("from", job.From).Msg("dead-lettering undeliverable activity")
			return nil
		}

		log.Debug().Str("to", job.To).Str("from", job.From).Msg("delivering activity")
		return d.Deliver(ctx, job.Payload, to, from)
	}
}
