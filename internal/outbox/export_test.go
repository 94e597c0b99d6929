package outbox

import "github.com/prometheus/client_golang/prometheus"

// Test-only accessors for the external outbox_test package.

func (r *Relay) PublishedCounter() prometheus.Counter { return r.published }

func (r *Relay) FailuresCounter() prometheus.Counter { return r.failures }
