package simulator

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/simhost/pkg/protocol"
)

// CrashReport is written to crash_dir when save_crashes is on.
type CrashReport struct {
	ID        string                  `yaml:"id"`
	RunID     string                  `yaml:"run_id"`
	Time      time.Time               `yaml:"time"`
	Region    string                  `yaml:"region"`
	Mode      string                  `yaml:"mode"`
	Error     string                  `yaml:"error"`
	GoVersion string                  `yaml:"go_version"`
	Startup   protocol.StartupOptions `yaml:"startup"`
}

// saveCrash writes a report for err and returns its path, or "" when crash
// saving is off.
func (s *Simulator) saveCrash(err error) (string, error) {
	opts := s.hc.Startup
	if !opts.SaveCrashes {
		return "", nil
	}
	report := CrashReport{
		ID:        uuid.NewString(),
		RunID:     s.hc.RunID,
		Time:      time.Now().UTC(),
		Region:    s.region,
		Mode:      string(s.hc.Mode),
		Error:     err.Error(),
		GoVersion: runtime.Version(),
		Startup:   opts,
	}
	data, merr := yaml.Marshal(report)
	if merr != nil {
		return "", merr
	}
	if merr := os.MkdirAll(opts.CrashDir, 0o755); merr != nil {
		return "", merr
	}
	path := filepath.Join(opts.CrashDir, report.ID+".yaml")
	if werr := os.WriteFile(path, data, 0o644); werr != nil {
		return "", werr
	}
	return path, nil
}

// Personal.AI order the ending
