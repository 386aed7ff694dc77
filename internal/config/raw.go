package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawServer struct {
	URL          *string `yaml:"url"`
	Testing      *bool   `yaml:"testing"`
	ClientName   *string `yaml:"client_name"`
	BucketPrefix *string `yaml:"bucket_prefix"`
	Hostname     *string `yaml:"hostname"`
}

type RawQueue struct {
	Enabled       *bool          `yaml:"enabled"`
	Path          *string        `yaml:"path"`
	RetryInterval *time.Duration `yaml:"retry_interval"`
}

type RawMetrics struct {
	Addr *string `yaml:"addr"`
}

type RawActivityLog struct {
	Enabled   *bool   `yaml:"enabled"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

// RawConfig mirrors the YAML file. Every field is optional so that files
// and includes can be layered before defaults are applied.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	SampleInterval *time.Duration `yaml:"sample_interval"`
	PulseTime      *time.Duration `yaml:"pulse_time"`
	CommitInterval *time.Duration `yaml:"commit_interval"`
	LogLevel       *string        `yaml:"log_level"`
	Display        *string        `yaml:"display"`

	Server      *RawServer      `yaml:"server"`
	Queue       *RawQueue       `yaml:"queue"`
	Metrics     *RawMetrics     `yaml:"metrics"`
	ActivityLog *RawActivityLog `yaml:"activity_log"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.SampleInterval != nil {
		out.SampleInterval = overlay.SampleInterval
	}
	if overlay.PulseTime != nil {
		out.PulseTime = overlay.PulseTime
	}
	if overlay.CommitInterval != nil {
		out.CommitInterval = overlay.CommitInterval
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}

	if overlay.Server != nil {
		merged := mergeRawServer(out.Server, *overlay.Server)
		out.Server = &merged
	}
	if overlay.Queue != nil {
		merged := mergeRawQueue(out.Queue, *overlay.Queue)
		out.Queue = &merged
	}
	if overlay.Metrics != nil {
		merged := RawMetrics{}
		if out.Metrics != nil {
			merged = *out.Metrics
		}
		if overlay.Metrics.Addr != nil {
			merged.Addr = overlay.Metrics.Addr
		}
		out.Metrics = &merged
	}
	if overlay.ActivityLog != nil {
		merged := mergeRawActivityLog(out.ActivityLog, *overlay.ActivityLog)
		out.ActivityLog = &merged
	}

	// Includes are resolved per file and never inherited.
	out.Include = nil
	return out
}

func mergeRawServer(base *RawServer, overlay RawServer) RawServer {
	out := RawServer{}
	if base != nil {
		out = *base
	}
	if overlay.URL != nil {
		out.URL = overlay.URL
	}
	if overlay.Testing != nil {
		out.Testing = overlay.Testing
	}
	if overlay.ClientName != nil {
		out.ClientName = overlay.ClientName
	}
	if overlay.BucketPrefix != nil {
		out.BucketPrefix = overlay.BucketPrefix
	}
	if overlay.Hostname != nil {
		out.Hostname = overlay.Hostname
	}
	return out
}

func mergeRawQueue(base *RawQueue, overlay RawQueue) RawQueue {
	out := RawQueue{}
	if base != nil {
		out = *base
	}
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.Path != nil {
		out.Path = overlay.Path
	}
	if overlay.RetryInterval != nil {
		out.RetryInterval = overlay.RetryInterval
	}
	return out
}

func mergeRawActivityLog(base *RawActivityLog, overlay RawActivityLog) RawActivityLog {
	out := RawActivityLog{}
	if base != nil {
		out = *base
	}
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.File != nil {
		out.File = overlay.File
	}
	if overlay.MaxSizeMB != nil {
		out.MaxSizeMB = overlay.MaxSizeMB
	}
	if overlay.MaxFiles != nil {
		out.MaxFiles = overlay.MaxFiles
	}
	return out
}
