package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_leads_created_total",
			Help: "Leads created, by source",
		},
		[]string{"source"},
	)

	businessesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_businesses_created_total",
			Help: "Business opportunities created, by origin (lead_form or direct)",
		},
		[]string{"origin"},
	)

	statusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_status_changes_total",
			Help: "Status changes applied, by entity and target status",
		},
		[]string{"entity", "status"},
	)
)
