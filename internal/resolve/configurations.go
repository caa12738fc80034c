package resolve

import (
	"context"
	"fmt"
	"os"
	"strings"

	"lspws/internal/model"
)

// CompileClasspath is the conventional compile configuration name.
const CompileClasspath = "compileClasspath"

// TestCompileClasspath is the conventional test compile configuration name.
const TestCompileClasspath = "testCompileClasspath"

// SelectConfigurations picks the compile-time configurations of p. When the
// conventional compileClasspath is resolvable it is used alone (plus
// testCompileClasspath with includeTests). Otherwise every resolvable
// configuration ending in CompileClasspath is used, skipping test variants
// unless includeTests is set.
func SelectConfigurations(p *model.Project, includeTests bool) []*model.Configuration {
	if exact, ok := p.Configuration(CompileClasspath); ok && exact.CanBeResolved {
		selected := []*model.Configuration{exact}
		if includeTests {
			if tc, ok := p.Configuration(TestCompileClasspath); ok && tc.CanBeResolved {
				selected = append(selected, tc)
			}
		}
		return selected
	}

	var selected []*model.Configuration
	for i := range p.Configurations {
		c := &p.Configurations[i]
		if !c.CanBeResolved {
			continue
		}
		lower := strings.ToLower(c.Name)
		if !strings.HasSuffix(lower, "compileclasspath") {
			continue
		}
		if !includeTests && strings.Contains(lower, "test") {
			continue
		}
		selected = append(selected, c)
	}
	return selected
}

// Resolved is one resolved artifact.
type Resolved struct {
	Coordinate model.Coordinate
	File       string
}

// Resolver resolves a configuration to artifacts.
type Resolver interface {
	Resolve(ctx context.Context, p *model.Project, c *model.Configuration) ([]Resolved, error)
}

// ModelResolver resolves configurations from the artifacts recorded in the
// project model.
type ModelResolver struct{}

// ResolutionError is returned for configurations that failed to resolve in
// the host build.
type ResolutionError struct {
	Project       string
	Configuration string
	Message       string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve configuration '%s' of %s: %s", e.Configuration, e.Project, e.Message)
}

// Resolve implements Resolver.
func (ModelResolver) Resolve(ctx context.Context, p *model.Project, c *model.Configuration) ([]Resolved, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.ResolutionError != "" {
		return nil, &ResolutionError{Project: p.Path, Configuration: c.Name, Message: c.ResolutionError}
	}
	out := make([]Resolved, 0, len(c.Artifacts))
	for _, a := range c.Artifacts {
		if a.File == "" {
			return nil, &ResolutionError{Project: p.Path, Configuration: c.Name, Message: fmt.Sprintf("artifact %s has no file", a.Name)}
		}
		if _, err := os.Stat(a.File); err != nil {
			return nil, &ResolutionError{Project: p.Path, Configuration: c.Name, Message: err.Error()}
		}
		out = append(out, Resolved{Coordinate: a.Coordinate(), File: a.File})
	}
	return out, nil
}
