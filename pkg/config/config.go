package config

// Config is the root configuration of a raftlog node.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger" validate:"required"`
	Server  ServerConfig  `yaml:"http-server" validate:"required"`
	Journal JournalConfig `yaml:"journal" validate:"required"`
	Append  AppendConfig  `yaml:"append" validate:"required"`
	Cluster ClusterConfig `yaml:"cluster"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"required,min=1,max=65535"`
}

// JournalConfig covers the durable log writer.
type JournalConfig struct {
	Dir           string `yaml:"dir" validate:"required"`
	InMemory      bool   `yaml:"in_memory"`
	MaxEntryBytes int64  `yaml:"max_entry_bytes" validate:"min=0"`
	SyncOnAppend  bool   `yaml:"sync_on_append"`
}

// AppendConfig covers the leader append pipeline.
type AppendConfig struct {
	// MaxAttempts is the total attempt cap per request for transient
	// storage faults, including the first attempt.
	MaxAttempts  int `yaml:"max_attempts" validate:"min=1"`
	RetryDelayMs int `yaml:"retry_delay_ms" validate:"min=0"`
}

// ClusterConfig covers ZooKeeper membership. An empty server list disables
// registration.
type ClusterConfig struct {
	Servers  []string `yaml:"servers"`
	RootPath string   `yaml:"root_path"`
	NodeAddr string   `yaml:"node_addr"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "DEBUG",
			JSON:  false,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Journal: JournalConfig{
			Dir:           "./data/journal",
			MaxEntryBytes: 4 * 1024 * 1024,
			SyncOnAppend:  true,
		},
		Append: AppendConfig{
			MaxAttempts:  5,
			RetryDelayMs: 10,
		},
		Cluster: ClusterConfig{
			RootPath: "/raftlog",
		},
	}
}
