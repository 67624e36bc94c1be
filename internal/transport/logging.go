// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"voicepiano/internal/log"
)

// LoggingTransport writes every message to the debug log as JSON.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Debugf("Transport: (%T) %+v (marshal error: %v)", data, data, err)
		return nil
	}
	log.Debugf("Transport: %s", jsonData)
	return nil
}

func (lt *LoggingTransport) Close() error {
	log.Debugf("Transport: LoggingTransport closed")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
