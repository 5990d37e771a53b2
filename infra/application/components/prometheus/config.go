package prometheus

type Config struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Address   string `yaml:"address" json:"address"` // ":9090"
	Path      string `yaml:"path" json:"path"`       // "/metrics"
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
	// 默认采集 go runtime 与 process 指标
	DisableRuntimeCollectors bool `yaml:"disable_runtime_collectors" json:"disable_runtime_collectors"`
}

func (c *Config) setDefaults() {
	if c.Address == "" {
		c.Address = ":9090"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
