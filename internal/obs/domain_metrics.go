package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PriceResolutionTotal counts pricing engine outcomes by direction.
	PriceResolutionTotal *prometheus.CounterVec
	// VinDecodeTotal counts external VIN decode attempts by result.
	VinDecodeTotal *prometheus.CounterVec
	// ChatMessagesTotal counts chat messages stored by sender role.
	ChatMessagesTotal *prometheus.CounterVec
	// PageViewsTotal counts recorded storefront page views.
	PageViewsTotal prometheus.Counter
	// BackupSnapshotsTotal counts backup snapshot assemblies.
	BackupSnapshotsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PriceResolutionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_resolution_total",
			Help:      "Count of price rule resolutions by applied direction.",
		}, []string{"direction"})
		VinDecodeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vin_decode_total",
			Help:      "Count of VIN decode API calls by result.",
		}, []string{"result"})
		ChatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Count of chat messages stored by sender role.",
		}, []string{"sender"})
		PageViewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_views_total",
			Help:      "Total storefront page views recorded.",
		})
		BackupSnapshotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_snapshots_total",
			Help:      "Total backup snapshots assembled.",
		})

		registerDomain(reg, PriceResolutionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceResolutionTotal = v
			}
		})
		registerDomain(reg, VinDecodeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VinDecodeTotal = v
			}
		})
		registerDomain(reg, ChatMessagesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ChatMessagesTotal = v
			}
		})
		registerDomain(reg, PageViewsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PageViewsTotal = v
			}
		})
		registerDomain(reg, BackupSnapshotsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				BackupSnapshotsTotal = v
			}
		})
	})
}

func registerDomain(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
