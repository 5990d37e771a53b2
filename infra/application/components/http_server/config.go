package http_server

import "time"

type HTTPServerConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Address         string        `yaml:"address" json:"address"` // ":8080"
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout" json:"handler_timeout"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout" json:"graceful_timeout"`
	EnableHealth    bool          `yaml:"enable_health" json:"enable_health"`
	// 由 app_info.app_name 注入
	ServiceName string `yaml:"-" json:"-"`
}

func (c *HTTPServerConfig) applyDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		// LLM 调用会拖长请求, 写超时要比 handler 超时长
		c.WriteTimeout = 90 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.HandlerTimeout == 0 {
		c.HandlerTimeout = 60 * time.Second
	}
	if c.GracefulTimeout == 0 {
		c.GracefulTimeout = 10 * time.Second
	}
	if c.ServiceName == "" {
		c.ServiceName = "http_server"
	}
}
