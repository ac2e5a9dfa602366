package config

// RedisConfig contains local persistence configuration. The agent keeps its
// session record, offline credential, and cached server settings in Redis;
// leave Enabled false for a purely in-memory (single-run) agent.
type RedisConfig struct {
	Enabled   bool   `env:"ENABLED"    envDefault:"false"`
	Addr      string `env:"ADDR"       envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"   envDefault:""`
	DB        int    `env:"DB"         envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"fieldsync:auth:"`
}
