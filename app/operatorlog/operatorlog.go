package operatorlog

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-contact/app/entity"
)

const defaultSinkTimeout = 3 * time.Second

// Sink persists operator events somewhere an operator can read them.
type Sink interface {
	Name() string
	Write(ctx context.Context, event entity.OperatorEvent) error
}

type SinkFunc func(ctx context.Context, event entity.OperatorEvent) error

type namedSink struct {
	name string
	fn   SinkFunc
}

// NewSink wraps fn as a named sink.
func NewSink(name string, fn SinkFunc) Sink {
	return namedSink{name: name, fn: fn}
}

func (s namedSink) Name() string { return s.name }

func (s namedSink) Write(ctx context.Context, event entity.OperatorEvent) error {
	return s.fn(ctx, event)
}

// Recorder writes every event to the structured log and fans it out to the
// sinks in the background. Sink failures are logged and dropped.
type Recorder struct {
	logger  logrus.FieldLogger
	sinks   []Sink
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// New builds a recorder over the given sinks.
func New(logger logrus.FieldLogger, sinks ...Sink) *Recorder {
	return &Recorder{
		logger:  logger.WithField("component", "operator_log"),
		sinks:   sinks,
		timeout: defaultSinkTimeout,
		now:     time.Now,
	}
}

// Record never blocks on the sinks and never fails.
func (r *Recorder) Record(ctx context.Context, event string, detail map[string]string) {
	ev := entity.OperatorEvent{
		Event:      event,
		Detail:     copyDetail(detail),
		OccurredAt: r.now().UTC(),
	}

	fields := logrus.Fields{"event": event}
	for k, v := range ev.Detail {
		fields["detail."+k] = v
	}
	r.logger.WithFields(fields).Info("operator event")

	// The request context ends with the response; sinks get their own deadline.
	base := context.WithoutCancel(ctx)
	for _, sink := range r.sinks {
		sink := sink
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			sinkCtx, cancel := context.WithTimeout(base, r.timeout)
			defer cancel()
			if err := sink.Write(sinkCtx, ev); err != nil {
				r.logger.WithFields(logrus.Fields{"event": event, "sink": sink.Name()}).WithError(err).Error("operator event sink failed")
			}
		}()
	}
}

// Close waits for in-flight sink writes.
func (r *Recorder) Close() {
	r.wg.Wait()
}

func copyDetail(detail map[string]string) map[string]string {
	out := make(map[string]string, len(detail))
	for k, v := range detail {
		out[k] = v
	}
	return out
}
