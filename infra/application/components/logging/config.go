package logging

import "time"

type LoggingConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Level        string        `yaml:"level" json:"level"`   // DEBUG / INFO / WARN / ERROR
	Format       string        `yaml:"format" json:"format"` // json / console
	Output       string        `yaml:"output" json:"output"` // stdout / stderr / file / 任意文件路径
	FileConfig   *FileConfig   `yaml:"file_config,omitempty" json:"file_config,omitempty"`
	RotateConfig *RotateConfig `yaml:"rotate_config,omitempty" json:"rotate_config,omitempty"`
}

type FileConfig struct {
	Dir      string `yaml:"dir" json:"dir"`
	Filename string `yaml:"filename" json:"filename"` // 不含 .log 后缀
}

// RotateConfig 基于 lumberjack 的按大小轮转
type RotateConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	MaxSizeMB  int           `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int           `yaml:"max_backups" json:"max_backups"`
	MaxAge     time.Duration `yaml:"max_age" json:"max_age"`
	Compress   bool          `yaml:"compress" json:"compress"`
}
