// Package config holds the single process-wide, atomically-swappable
// runtime configuration, in the style of the teacher's cmn.GCO
// "global config owner" (see `config := cmn.GCO.Get()` in
// xact/xs/tcb.go). Every read is a pointer load off an atomic.Pointer;
// updates install a whole new immutable Config rather than mutating
// fields in place, so concurrent readers never observe a half-written
// config.
package config

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

// Config is immutable once installed; build a new one and call Set to
// change it.
type Config struct {
	// Team discovery: "k8s" or "bootstrap".
	DiscoveryMode string

	// Bootstrap rendezvous (team/bootstrap).
	BootstrapAddr    string
	BootstrapTimeout time.Duration
	JoinTokenSecret  string

	// Kubernetes discovery (team/discovery).
	K8sNamespace   string
	K8sServiceName string

	// Transport tuning.
	CompressionEnabled bool
	CompressionMinSize int

	// Checkpoint defaults.
	CheckpointBackend string // "local", "s3", "azure", "gcs", "hdfs"
	CheckpointShards  int
	ECDataShards      int
	ECParityShards    int
}

func defaults() *Config {
	return &Config{
		DiscoveryMode:      "bootstrap",
		BootstrapAddr:      "127.0.0.1:49200",
		BootstrapTimeout:   10 * time.Second,
		JoinTokenSecret:    "dash-dev-secret",
		K8sNamespace:       "default",
		K8sServiceName:     "dash-team",
		CompressionEnabled: true,
		CompressionMinSize: 64 << 10,
		CheckpointBackend:  "local",
		CheckpointShards:   4,
		ECDataShards:       4,
		ECParityShards:     2,
	}
}

var owner atomic.Pointer[Config]

func init() { owner.Store(defaults()) }

// Get returns the current config. Never nil.
func Get() *Config { return owner.Load() }

// Set installs a new config wholesale.
func Set(c *Config) { owner.Store(c) }

// Load merges environment variables (DASH_*) and an optional YAML file
// over the compiled-in defaults and installs the result.
func Load(path string) error {
	v := viper.New()
	v.SetEnvPrefix("DASH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	d := defaults()
	v.SetDefault("discovery_mode", d.DiscoveryMode)
	v.SetDefault("bootstrap_addr", d.BootstrapAddr)
	v.SetDefault("bootstrap_timeout", d.BootstrapTimeout)
	v.SetDefault("join_token_secret", d.JoinTokenSecret)
	v.SetDefault("k8s_namespace", d.K8sNamespace)
	v.SetDefault("k8s_service_name", d.K8sServiceName)
	v.SetDefault("compression_enabled", d.CompressionEnabled)
	v.SetDefault("compression_min_size", d.CompressionMinSize)
	v.SetDefault("checkpoint_backend", d.CheckpointBackend)
	v.SetDefault("checkpoint_shards", d.CheckpointShards)
	v.SetDefault("ec_data_shards", d.ECDataShards)
	v.SetDefault("ec_parity_shards", d.ECParityShards)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	Set(&Config{
		DiscoveryMode:      v.GetString("discovery_mode"),
		BootstrapAddr:      v.GetString("bootstrap_addr"),
		BootstrapTimeout:   v.GetDuration("bootstrap_timeout"),
		JoinTokenSecret:    v.GetString("join_token_secret"),
		K8sNamespace:       v.GetString("k8s_namespace"),
		K8sServiceName:     v.GetString("k8s_service_name"),
		CompressionEnabled: v.GetBool("compression_enabled"),
		CompressionMinSize: v.GetInt("compression_min_size"),
		CheckpointBackend:  v.GetString("checkpoint_backend"),
		CheckpointShards:   v.GetInt("checkpoint_shards"),
		ECDataShards:       v.GetInt("ec_data_shards"),
		ECParityShards:     v.GetInt("ec_parity_shards"),
	})
	return nil
}
