package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightrange_orders_submitted_total",
			Help: "Bracket orders handed to the order gateway (by strategy).",
		},
		[]string{"strategy"},
	)

	OrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightrange_orders_rejected_total",
			Help: "Computed orders that failed geometry validation (by strategy).",
		},
		[]string{"strategy"},
	)

	ComplianceViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightrange_compliance_violations_total",
			Help: "Loss-limit violations detected by the account tracker (by kind: dll, mll).",
		},
		[]string{"kind"},
	)

	SchedulerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightrange_scheduler_executions_total",
			Help: "Market-open executions (by mode: on_time, catchup, skipped).",
		},
		[]string{"mode"},
	)

	BreakevenTriggers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nightrange_breakeven_triggers_total",
			Help: "Stops moved to breakeven by the monitor.",
		},
	)

	AccountBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nightrange_account_balance",
			Help: "Current tracked balance per account.",
		},
		[]string{"account"},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersSubmitted,
		OrdersRejected,
		ComplianceViolations,
		SchedulerExecutions,
		BreakevenTriggers,
		AccountBalance,
	)
}
