package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloud_uploads_total",
		Help: "Upload requests by outcome.",
	}, []string{"outcome"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloud_downloads_total",
		Help: "Download requests by outcome.",
	}, []string{"outcome"})

	transferredBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cloud_transferred_bytes_total",
		Help: "Payload bytes moved through the server.",
	}, []string{"direction"})
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)
