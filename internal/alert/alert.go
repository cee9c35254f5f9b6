package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is one threshold breach.
type Alert struct {
	Event     string    `json:"event"`
	Severity  string    `json:"severity"`
	SKU       string    `json:"sku,omitempty"`
	VendorID  string    `json:"vendor_id,omitempty"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Date      time.Time `json:"date"`
}

func (a Alert) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s=%.4f threshold=%.4f date=%s",
		strings.ToUpper(a.Severity), a.Event, a.Metric, a.Value, a.Threshold, a.Date.Format("2006-01-02"))
	if a.SKU != "" {
		fmt.Fprintf(&b, " sku=%s vendor_id=%s", a.SKU, a.VendorID)
	}
	return b.String()
}

type Sender interface {
	Send(ctx context.Context, a Alert) error
}

// Dispatcher fans alerts out to every sender. Delivery failures are logged and
// never returned, so monitoring never fails on a flaky channel.
type Dispatcher struct {
	Senders []Sender
	Timeout time.Duration
	Logger  *zap.Logger
}

// Dispatch returns the number of successful deliveries.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []Alert) int {
	if d == nil || len(alerts) == 0 {
		return 0
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	delivered := 0
	for _, a := range alerts {
		if d.Logger != nil {
			d.Logger.Warn("monitoring alert",
				zap.String("event", a.Event),
				zap.String("severity", a.Severity),
				zap.String("metric", a.Metric),
				zap.Float64("value", a.Value),
				zap.Float64("threshold", a.Threshold),
				zap.String("sku", a.SKU),
				zap.String("vendor_id", a.VendorID),
			)
		}
		for _, s := range d.Senders {
			sendCtx, cancel := context.WithTimeout(ctx, timeout)
			err := s.Send(sendCtx, a)
			cancel()
			if err != nil {
				if d.Logger != nil {
					d.Logger.Warn("alert delivery failed", zap.String("event", a.Event), zap.Error(err))
				}
				continue
			}
			delivered++
		}
	}
	return delivered
}
