package main

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/ktaudit/ktaudit/crypto/keys"
	"gopkg.in/yaml.v2"
)

// Config specifies the file format of this auditor's config file.
type Config struct {
	Auditor    *AuditorConfig    `yaml:"auditor"`
	Transport  *TransportConfig  `yaml:"transport"`
	Repository *RepositoryConfig `yaml:"repository"`
	Metrics    *MetricsConfig    `yaml:"metrics"`
}

// AuditorConfig holds the auditor's own key material and tuning knobs.
type AuditorConfig struct {
	PrivateKey string `yaml:"private-key"` // base64 PKCS8 Ed25519
	privateKey keys.PrivateKey

	PublicKey string `yaml:"public-key"` // base64 X.509 Ed25519
	publicKey keys.PublicKey

	KTSigningPublicKey string `yaml:"kt-signing-public-key"`
	ktSigningPublicKey keys.PublicKey

	KTVRFPublicKey string `yaml:"kt-vrf-public-key"`
	ktVRFPublicKey keys.PublicKey

	BatchSize uint64 `yaml:"batch-size"`
	Interval  string `yaml:"interval"`
	interval  time.Duration

	Signature *SignatureConfig `yaml:"signature"`
}

// SignatureConfig tunes how often the auditor countersigns a new tree head.
type SignatureConfig struct {
	Interval string `yaml:"interval"`
	interval time.Duration

	PageSize uint64 `yaml:"page-size"`
}

// TransportConfig points at the key transparency service's audit API.
type TransportConfig struct {
	Addr string `yaml:"addr"`
}

// RepositoryConfig selects and configures where persisted auditor state
// lives: either a local embedded key-value store, or an S3-compatible
// cloud object store.
type RepositoryConfig struct {
	Kind string `yaml:"kind"` // "local" or "cloud"

	Path string `yaml:"path"` // local

	Bucket   string `yaml:"bucket"`   // cloud
	Prefix   string `yaml:"prefix"`   // cloud
	Region   string `yaml:"region"`   // cloud
	Endpoint string `yaml:"endpoint"` // cloud
}

// MetricsConfig configures the Prometheus metrics and health server.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func ReadConfig(filename string) (*Config, error) {
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var parsed Config
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	if parsed.Auditor == nil {
		return nil, fmt.Errorf("field not provided: auditor")
	} else if parsed.Auditor.PrivateKey == "" {
		return nil, fmt.Errorf("field not provided: auditor.private-key")
	} else if parsed.Auditor.PublicKey == "" {
		return nil, fmt.Errorf("field not provided: auditor.public-key")
	} else if parsed.Auditor.KTSigningPublicKey == "" {
		return nil, fmt.Errorf("field not provided: auditor.kt-signing-public-key")
	} else if parsed.Auditor.KTVRFPublicKey == "" {
		return nil, fmt.Errorf("field not provided: auditor.kt-vrf-public-key")
	} else if parsed.Transport == nil || parsed.Transport.Addr == "" {
		return nil, fmt.Errorf("field not provided: transport.addr")
	} else if parsed.Repository == nil || parsed.Repository.Kind == "" {
		return nil, fmt.Errorf("field not provided: repository.kind")
	} else if parsed.Metrics == nil || parsed.Metrics.Addr == "" {
		return nil, fmt.Errorf("field not provided: metrics.addr")
	}

	switch parsed.Repository.Kind {
	case "local":
		if parsed.Repository.Path == "" {
			return nil, fmt.Errorf("field not provided: repository.path")
		}
	case "cloud":
		if parsed.Repository.Bucket == "" {
			return nil, fmt.Errorf("field not provided: repository.bucket")
		}
	default:
		return nil, fmt.Errorf("repository.kind must be \"local\" or \"cloud\", got %q", parsed.Repository.Kind)
	}

	if parsed.Auditor.BatchSize == 0 {
		parsed.Auditor.BatchSize = 1000
	} else if parsed.Auditor.BatchSize > 1000 {
		return nil, fmt.Errorf("auditor.batch-size must be between 1 and 1000")
	}
	if parsed.Auditor.Interval == "" {
		parsed.Auditor.interval = time.Minute
	} else {
		d, err := time.ParseDuration(parsed.Auditor.Interval)
		if err != nil {
			return nil, fmt.Errorf("failed to parse auditor.interval: %v", err)
		}
		parsed.Auditor.interval = d
	}

	if parsed.Auditor.Signature == nil {
		parsed.Auditor.Signature = &SignatureConfig{}
	}
	if parsed.Auditor.Signature.Interval == "" {
		parsed.Auditor.Signature.interval = time.Hour
	} else {
		d, err := time.ParseDuration(parsed.Auditor.Signature.Interval)
		if err != nil {
			return nil, fmt.Errorf("failed to parse auditor.signature.interval: %v", err)
		}
		parsed.Auditor.Signature.interval = d
	}
	if parsed.Auditor.Signature.PageSize == 0 {
		parsed.Auditor.Signature.PageSize = 1_000_000
	}

	var err2 error
	if parsed.Auditor.privateKey, err2 = keys.ParsePrivateKey(parsed.Auditor.PrivateKey); err2 != nil {
		return nil, fmt.Errorf("failed to parse auditor.private-key: %v", err2)
	}
	if parsed.Auditor.publicKey, err2 = keys.ParsePublicKey(parsed.Auditor.PublicKey); err2 != nil {
		return nil, fmt.Errorf("failed to parse auditor.public-key: %v", err2)
	}
	if parsed.Auditor.ktSigningPublicKey, err2 = keys.ParsePublicKey(parsed.Auditor.KTSigningPublicKey); err2 != nil {
		return nil, fmt.Errorf("failed to parse auditor.kt-signing-public-key: %v", err2)
	}
	if parsed.Auditor.ktVRFPublicKey, err2 = keys.ParsePublicKey(parsed.Auditor.KTVRFPublicKey); err2 != nil {
		return nil, fmt.Errorf("failed to parse auditor.kt-vrf-public-key: %v", err2)
	}

	return &parsed, nil
}
