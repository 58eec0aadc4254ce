package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created with escrow held",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	EscrowReleasedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_released_total",
		Help: "Total number of escrow releases",
	}, []string{"by"})

	EscrowReleaseRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_release_rejected_total",
		Help: "Total number of delivery confirmations rejected as duplicates",
	})

	StockReservationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_failed_total",
		Help: "Total number of failed stock reservations",
	}, []string{"reason"})

	SettlementLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_latency_seconds",
		Help:    "Latency of settlement workflow operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	PayoutsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payouts_requested_total",
		Help: "Total number of payout requests accepted",
	})

	PayoutsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payouts_completed_total",
		Help: "Total number of payouts completed by the provider",
	})

	PayoutsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payouts_failed_total",
		Help: "Total number of payouts failed and re-credited",
	})

	RateRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_refresh_total",
		Help: "Total number of exchange rate refresh attempts",
	}, []string{"status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
