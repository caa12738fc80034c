package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Coordinate identifies a published artifact.
type Coordinate struct {
	Group   string
	Name    string
	Version string
}

// String returns group:name:version.
func (c Coordinate) String() string {
	return c.Group + ":" + c.Name + ":" + c.Version
}

// GA returns group:name.
func (c Coordinate) GA() string {
	return c.Group + ":" + c.Name
}

// ParseCoordinate parses group:name:version.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q, want group:name:version", s)
	}
	return Coordinate{Group: parts[0], Name: parts[1], Version: parts[2]}, nil
}

var fileVersion = regexp.MustCompile(`-(\d+\.\d+\.\d+[^-]*)$`)

// CoordinateFromFile guesses a coordinate from an archive file name such as
// foo-bar-1.2.3.jar. The group is always Unknown.
func CoordinateFromFile(file string) Coordinate {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if m := fileVersion.FindStringSubmatch(base); m != nil {
		return Coordinate{Group: Unknown, Name: strings.TrimSuffix(base, "-"+m[1]), Version: m[1]}
	}
	return Coordinate{Group: Unknown, Name: base, Version: Unknown}
}

// Coordinate returns the artifact's coordinate with missing parts filled from
// the file name or Unknown.
func (a Artifact) Coordinate() Coordinate {
	c := Coordinate{Group: a.Group, Name: a.Name, Version: a.Version}
	if c.Name == "" || c.Version == "" {
		guess := CoordinateFromFile(a.File)
		if c.Name == "" {
			c.Name = guess.Name
		}
		if c.Version == "" {
			c.Version = guess.Version
		}
	}
	if c.Group == "" {
		c.Group = Unknown
	}
	return c
}
