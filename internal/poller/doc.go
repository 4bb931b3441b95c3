// Package poller drives the acquisition and publish cadences.
//
// Two tickers run on independent intervals: the read ticker triggers a
// bus acquisition cycle, the publish ticker pushes the current state to
// MQTT and the history sink. Intervals can be changed at runtime, which
// is how the MQTT settings command adjusts cadence without a restart.
//
// The poller knows nothing about sensors or brokers. It calls a Reader
// and a Sink on schedule and leaves the semantics to them.
package poller
