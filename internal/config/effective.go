package config

import "fmt"

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s: %s: %v", e.Source.position(), e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies raw over DefaultConfig. It does not validate.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.SampleInterval != nil {
		cfg.SampleInterval = *raw.SampleInterval
	}
	if raw.PulseTime != nil {
		cfg.PulseTime = *raw.PulseTime
	}
	if raw.CommitInterval != nil {
		cfg.CommitInterval = *raw.CommitInterval
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}

	if s := raw.Server; s != nil {
		cfg.Server.URL = derefString(s.URL, cfg.Server.URL)
		cfg.Server.Testing = derefBool(s.Testing, cfg.Server.Testing)
		cfg.Server.ClientName = derefString(s.ClientName, cfg.Server.ClientName)
		cfg.Server.BucketPrefix = derefString(s.BucketPrefix, cfg.Server.BucketPrefix)
		cfg.Server.Hostname = derefString(s.Hostname, cfg.Server.Hostname)
	}
	if q := raw.Queue; q != nil {
		cfg.Queue.Enabled = derefBool(q.Enabled, cfg.Queue.Enabled)
		cfg.Queue.Path = derefString(q.Path, cfg.Queue.Path)
		if q.RetryInterval != nil {
			cfg.Queue.RetryInterval = *q.RetryInterval
		}
	}
	if m := raw.Metrics; m != nil {
		cfg.Metrics.Addr = derefString(m.Addr, cfg.Metrics.Addr)
	}
	if a := raw.ActivityLog; a != nil {
		cfg.ActivityLog.Enabled = derefBool(a.Enabled, cfg.ActivityLog.Enabled)
		cfg.ActivityLog.File = derefString(a.File, cfg.ActivityLog.File)
		cfg.ActivityLog.MaxSizeMB = derefInt(a.MaxSizeMB, cfg.ActivityLog.MaxSizeMB)
		cfg.ActivityLog.MaxFiles = derefInt(a.MaxFiles, cfg.ActivityLog.MaxFiles)
	}

	return cfg
}

func derefInt(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func derefString(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func derefBool(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
