package nestedset

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var nodesInsertedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "arbor_nodes_inserted_total",
	Help: "Total number of nodes inserted",
})

var nodesMovedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "arbor_nodes_moved_total",
	Help: "Total number of subtree relocations",
})

var nodesDeletedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "arbor_nodes_deleted_total",
	Help: "Total number of rows removed by subtree deletions",
})

var treeOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "arbor_tree_op_duration_seconds",
	Help:    "Duration of tree operations",
	Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
}, []string{"op"})
