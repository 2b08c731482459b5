package services

import (
	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/ports"
)

type noopMetrics struct{}

// NoopMetrics returns a MetricsRecorder that discards everything. Used
// when monitoring is disabled and throughout the test suite.
func NoopMetrics() ports.MetricsRecorder { return noopMetrics{} }

func (noopMetrics) RecordSessionStarted(domain.MeetingID)  {}
func (noopMetrics) RecordSessionEnded(domain.MeetingID)    {}
func (noopMetrics) RecordConnectionOpened()                {}
func (noopMetrics) RecordConnectionClosed()                {}
func (noopMetrics) RecordJoin(bool)                        {}
func (noopMetrics) RecordWaiting(int)                      {}
func (noopMetrics) RecordEventPushed(domain.EventType)     {}
func (noopMetrics) RecordSendFailure()                     {}
func (noopMetrics) RecordActionDispatched(string)          {}
