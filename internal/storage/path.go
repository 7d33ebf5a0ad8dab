package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

var exportExtensions = map[string]bool{"parquet": true, "csv": true}

// BuildExportPath lays out exported result files as
// exports/date=YYYY-MM-DD/<timestamp>-<id>.<ext>. The store adds its prefix.
func BuildExportPath(exportID string, createdAt time.Time, extension string) (string, error) {
	if err := validatePathComponent(exportID, "export id"); err != nil {
		return "", err
	}
	if !exportExtensions[extension] {
		return "", fmt.Errorf("invalid export extension: %q", extension)
	}

	ts := createdAt.UTC()
	return path.Join(
		"exports",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s-%s.%s", ts.Format("20060102T150405Z"), exportID, extension),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
