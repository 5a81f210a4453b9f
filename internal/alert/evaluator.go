// Package alert turns readings and classifier verdicts into operator
// notifications, deduplicated per condition by a CooldownGate.
package alert

import (
	"context"
	"time"

	"go.uber.org/zap"

	"aq-backend/internal/models"
)

// Fixed safety thresholds on raw gas sensor values. They are independent of
// the percentile boundaries used to label training data.
const (
	MQ2Threshold   = 600.0
	MQ135Threshold = 600.0
)

// Condition names an alert predicate; it doubles as the cooldown key
type Condition string

const (
	ConditionMQ2High   Condition = "mq2_high"
	ConditionMQ135High Condition = "mq135_high"
	ConditionAIBad     Condition = "ai_bad"
)

// DefaultSendTimeout bounds a single notification attempt
const DefaultSendTimeout = 10 * time.Second

// Notifier delivers a text notification and reports whether it was delivered
type Notifier interface {
	Send(ctx context.Context, text string) bool
}

// Fired is a condition that passed its test and the cooldown gate
type Fired struct {
	Condition Condition `json:"condition"`
	Message   string    `json:"message"`
	Delivered bool      `json:"delivered"`
}

// Result lists what happened to each condition that matched a reading
type Result struct {
	Fired      []Fired
	Suppressed []Condition // matched but still inside the cooldown window
}

// Evaluator applies the alert rules to one reading at a time
type Evaluator struct {
	gate        *CooldownGate
	notifier    Notifier
	logger      *zap.Logger
	sendTimeout time.Duration
}

// NewEvaluator creates an evaluator sharing the given cooldown gate
func NewEvaluator(gate *CooldownGate, notifier Notifier, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		gate:        gate,
		notifier:    notifier,
		logger:      logger,
		sendTimeout: DefaultSendTimeout,
	}
}

// Evaluate checks the three rules independently. aiLabel is the classifier's
// label name, or "" when no prediction is available. A failed delivery is
// logged and otherwise ignored: the cooldown stays armed.
func (e *Evaluator) Evaluate(ctx context.Context, r models.Reading, aiLabel string) Result {
	var res Result

	if r.MQ2 >= MQ2Threshold {
		e.fire(ctx, &res, ConditionMQ2High, func() string { return formatSensorAlert("MQ2 HIGH", r, aiLabel) })
	}
	if r.MQ135 >= MQ135Threshold {
		e.fire(ctx, &res, ConditionMQ135High, func() string { return formatSensorAlert("MQ135 HIGH", r, aiLabel) })
	}
	if aiLabel == models.LabelBad.String() {
		e.fire(ctx, &res, ConditionAIBad, func() string { return formatAIAlert(r) })
	}

	return res
}

// fire passes cond through the gate and sends the message when allowed
func (e *Evaluator) fire(ctx context.Context, res *Result, cond Condition, message func() string) {
	if !e.gate.Acquire(string(cond)) {
		res.Suppressed = append(res.Suppressed, cond)
		e.logger.Debug("Alert suppressed by cooldown", zap.String("condition", string(cond)))
		return
	}

	text := message()
	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	delivered := e.notifier.Send(sendCtx, text)
	cancel()

	if delivered {
		e.logger.Info("Alert sent", zap.String("condition", string(cond)))
	} else {
		e.logger.Warn("Alert delivery failed", zap.String("condition", string(cond)))
	}
	res.Fired = append(res.Fired, Fired{Condition: cond, Message: text, Delivered: delivered})
}
