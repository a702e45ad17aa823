package sysfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// OSGateway reads and writes real sysfs files.
type OSGateway struct{}

// NewOSGateway instantiates a gateway backed by the real filesystem.
func NewOSGateway() *OSGateway {
	return &OSGateway{}
}

func (OSGateway) ReadString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}

	// Sysfs attributes are newline-terminated; trim exactly one trailing
	// newline the way the original sysfs_read_str implementation does,
	// by overwriting the last byte rather than trimming all whitespace.
	s := string(data)
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	return s, nil
}

func (g OSGateway) WriteString(path string, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("cannot write %q to %s: %w", value, path, err)
	}
	return nil
}

func (g OSGateway) ReadInt(path string) (int, error) {
	s, err := g.ReadString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("cannot parse int from %s (%q): %w", path, s, err)
	}
	return v, nil
}

func (g OSGateway) WriteInt(path string, value int) error {
	return g.WriteString(path, strconv.Itoa(value))
}

func (g OSGateway) ReadFloat(path string) (float64, error) {
	s, err := g.ReadString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse float from %s (%q): %w", path, s, err)
	}
	return v, nil
}

func (g OSGateway) WriteFloat(path string, value float64) error {
	// %g mirrors the original sysfs_write_float formatting.
	return g.WriteString(path, strconv.FormatFloat(value, 'g', -1, 64))
}
