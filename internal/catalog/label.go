package catalog

import (
	"regexp"
	"time"
)

var filenameTimeRe = regexp.MustCompile(`(\d{8})_(\d{6})\.json`)

// ParseFilenameTime extracts the YYYYMMDD_HHMMSS stamp the gateway puts in log
// filenames. The stamp is read as wall-clock time in loc.
func ParseFilenameTime(name string, loc *time.Location) (time.Time, bool) {
	m := filenameTimeRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	ts, err := time.ParseInLocation("20060102150405", m[1]+m[2], loc)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Labeler formats navigator labels for log files.
type Labeler struct {
	Layout   string
	Location *time.Location
}

func (l Labeler) Label(e Entry) string {
	ts, ok := ParseFilenameTime(e.Filename, l.Location)
	if !ok {
		return e.Filename
	}
	layout := l.Layout
	if layout == "" {
		layout = "2006/1/2 15:04:05"
	}
	return ts.Format(layout)
}
