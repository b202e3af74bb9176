package websocket

import "time"

// WebSocketConfig WebSocket Config
type WebSocketConfig struct {
	PingPeriod          time.Duration `json:"ping_period"`
	WriteWait           time.Duration `json:"write_wait"`
	MaxMessageSize      int64         `json:"max_message_size"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	SendBuffer          int           `json:"send_buffer"`
}

// NewDefaultWebSocketConfig Create a default WebSocket configuration
func NewDefaultWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		PingPeriod:          30 * time.Second,
		WriteWait:           10 * time.Second,
		MaxMessageSize:      64 * 1024,
		ReadTimeout:         60 * time.Second,
		HealthCheckInterval: 60 * time.Second,
		SendBuffer:          256,
	}
}
