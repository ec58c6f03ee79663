package metadata

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/intel/gprofiler-go/internal/sys/proc"
)

// identityMarkers maps a regular expression matched against a process's
// full command line to the application-identity label it implies,
// checked in order so a more specific framework marker (e.g. "gunicorn")
// wins over a generic interpreter invocation.
var identityMarkers = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`gunicorn`), "gunicorn"},
	{regexp.MustCompile(`uwsgi`), "uwsgi"},
	{regexp.MustCompile(`celery`), "celery"},
	{regexp.MustCompile(`\bmanage\.py\b`), "django"},
	{regexp.MustCompile(`php-fpm`), "php-fpm"},
	{regexp.MustCompile(`-jar\s+\S+\.jar`), "java-jar"},
	{regexp.MustCompile(`org\.apache\.catalina`), "tomcat"},
	{regexp.MustCompile(`node_modules/\.bin/`), "node-script"},
}

// AppIdentity derives a string grouping processes of the same logical
// service - the "Application identity" glossary entry - from a PID's
// command line, falling back to the resolved executable's base name when
// no framework marker matches.
func AppIdentity(pid int) string {
	args, err := proc.Cmdline(pid)
	if err != nil || len(args) == 0 {
		if exe, err := proc.BinaryPath(pid); err == nil {
			return filepath.Base(exe)
		}
		return ""
	}

	cmdline := strings.Join(args, " ")
	for _, m := range identityMarkers {
		if m.pattern.MatchString(cmdline) {
			return m.label
		}
	}

	return filepath.Base(args[0])
}
