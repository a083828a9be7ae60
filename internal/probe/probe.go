package probe

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/turtacn/simhost/pkg/logger"
)

var supportedOS = map[string]bool{
	"linux":   true,
	"darwin":  true,
	"windows": true,
	"freebsd": true,
}

var supportedArch = map[string]bool{
	"amd64":   true,
	"arm64":   true,
	"ppc64le": true,
	"s390x":   true,
	"riscv64": true,
	"loong64": true,
}

// MinGoMinor is the oldest Go 1.x release the host is tested against.
const MinGoMinor = 21

// Probe checks host compatibility passively. It never mutates anything.
type Probe struct {
	GOOS      string
	GOARCH    string
	GoVersion string
	Getenv    func(string) string
}

// New returns a Probe of the running process.
func New() *Probe {
	return &Probe{
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		GoVersion: runtime.Version(),
		Getenv:    os.Getenv,
	}
}

// Check returns the verdict and a human-readable reason when unsupported.
func (p *Probe) Check() (bool, string) {
	var problems []string
	if !supportedOS[p.GOOS] {
		problems = append(problems, "unsupported platform "+p.GOOS)
	}
	if !supportedArch[p.GOARCH] {
		problems = append(problems, "unsupported architecture "+p.GOARCH+" (64-bit required)")
	}
	if minor, ok := goMinor(p.GoVersion); ok && minor < MinGoMinor {
		problems = append(problems, fmt.Sprintf("runtime %s older than go1.%d", p.GoVersion, MinGoMinor))
	}
	if strings.EqualFold(p.getenv("GOGC"), "off") {
		problems = append(problems, "GOGC=off disables garbage collection")
	}
	if len(problems) == 0 {
		return true, fmt.Sprintf("%s/%s %s", p.GOOS, p.GOARCH, p.GoVersion)
	}
	return false, strings.Join(problems, "; ")
}

// Report runs Check and logs the verdict plus advisory environment details.
func (p *Probe) Report(log logger.Logger) bool {
	log = logger.Or(log)

	locale := firstSet(p.getenv("LC_ALL"), p.getenv("LANG"))
	log.Info("Probe: system locale", "locale", orUnset(locale))
	log.Info("Probe: GOMAXPROCS", "env", orUnset(p.getenv("GOMAXPROCS")), "effective", runtime.GOMAXPROCS(0))
	if v := p.getenv("GODEBUG"); v != "" {
		log.Info("Probe: GODEBUG is set", "value", v)
	}

	ok, detail := p.Check()
	if ok {
		log.Info("Probe: environment is supported", "detail", detail)
	} else {
		log.Warn("Probe: environment is not supported", "detail", detail)
	}
	return ok
}

func (p *Probe) getenv(k string) string {
	if p.Getenv == nil {
		return ""
	}
	return p.Getenv(k)
}

// goMinor extracts N from "go1.N" or "go1.N.P"; devel builds report !ok.
func goMinor(v string) (int, bool) {
	rest, ok := strings.CutPrefix(v, "go1.")
	if !ok {
		return 0, false
	}
	if i := strings.IndexAny(rest, ".-+ "); i >= 0 {
		rest = rest[:i]
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func orUnset(v string) string {
	if v == "" {
		return "unset"
	}
	return v
}

// Personal.AI order the ending
