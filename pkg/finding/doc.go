// Package finding provides the vulnerability and severity types shared by
// plugins, the scheduler, the aggregator and the report writers.
//
// Plugins build Vulnerability values during a run; everything downstream
// treats them as immutable.
package finding
