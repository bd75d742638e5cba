package audit

import (
	"context"

	id "refledger/pkg/domain"
)

// Fanout appends to a primary store and best-effort mirrors to secondary
// sinks (e.g. a Kafka topic). Reads go to the primary only. A sink failure
// does not fail the append; the primary store is the source of truth for
// queries.
type Fanout struct {
	primary Store
	sinks   []Store
	onError func(error)
}

func NewFanout(primary Store, onError func(error), sinks ...Store) *Fanout {
	if onError == nil {
		onError = func(error) {}
	}
	return &Fanout{primary: primary, sinks: sinks, onError: onError}
}

func (f *Fanout) Append(ctx context.Context, event Event) error {
	if err := f.primary.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range f.sinks {
		if err := sink.Append(ctx, event); err != nil {
			f.onError(err)
		}
	}
	return nil
}

func (f *Fanout) ListByParticipant(ctx context.Context, participant id.ParticipantID) ([]Event, error) {
	return f.primary.ListByParticipant(ctx, participant)
}
