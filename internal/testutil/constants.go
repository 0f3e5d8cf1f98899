// Package testutil provides a seeded in-memory database, request builders and
// an upstream stub shared by package tests
package testutil

import "time"

const (
	// TestTimeout bounds operations against the in-memory store
	TestTimeout = 30 * time.Second

	// ShortTestTimeout bounds calls to local stub servers
	ShortTestTimeout = 5 * time.Second

	// ConcurrentWorkers is the fan-out used by concurrency tests
	ConcurrentWorkers = 20
)

// Row counts of the bundled sample dataset
const (
	SampleFarms         = 3
	SampleSDC           = 3
	SamplePlots         = 16
	SampleRotations     = 9
	SampleInterventions = 8
	SampleIndicators    = 7

	// SampleBioPlots is the number of plots attached to the only Bio cropping system
	SampleBioPlots = 5
)
