package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// TemplateKind selects the message template rendered by the delivery layer.
type TemplateKind string

const (
	TemplateGradesSubmitted TemplateKind = "GRADES_SUBMITTED"
	TemplateReportCard      TemplateKind = "REPORT_CARD"
	TemplateCaseForwarded   TemplateKind = "CASE_FORWARDED"
)

// Message is a single outbound notification.
type Message struct {
	Recipient  string
	Template   TemplateKind
	Subject    string
	Payload    map[string]interface{}
	Attachment []byte
}

// Notifier delivers messages to recipients. Delivery is best-effort:
// callers must never let a returned error abort workflow state.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Metrics exposes delivery counters for observability.
type Metrics struct {
	Sent   prometheus.Counter
	Failed prometheus.Counter
}

// NewMetrics registers delivery counters on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total notifications handed to the delivery layer",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total notifications dropped after delivery retries were exhausted",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Sent, m.Failed)
	}
	return m
}

// LogNotifier writes notifications to the log instead of a real
// delivery channel. It stands in for the host application's mail
// integration during development and tests.
type LogNotifier struct {
	logger  *zap.Logger
	metrics *Metrics
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger, metrics *Metrics) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger, metrics: metrics}
}

// Notify implements Notifier. Failures are counted by the queue once
// retries run out, not here, so a retried delivery is not overcounted.
func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("notification dispatched",
		zap.String("recipient", msg.Recipient),
		zap.String("template", string(msg.Template)),
		zap.String("subject", msg.Subject),
		zap.Int("attachment_bytes", len(msg.Attachment)),
	)
	if n.metrics != nil {
		n.metrics.Sent.Inc()
	}
	return nil
}
