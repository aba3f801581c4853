// llmstream CI/CD
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/llmstream/internal/dagger"
)

// Llmstream is the main module for the llmstream CI/CD pipeline
type Llmstream struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new llmstream CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", ".llmstream", "build", "tmp"]
	source *dagger.Directory,
) *Llmstream {
	return &Llmstream{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with the project
// source mounted and the module caches attached.
//
// It is the shared foundation for tests, builds, and linting.
func (t *Llmstream) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", t.Source)
}

// Test runs the llmstream unit tests via "go test" with the race detector,
// which needs cgo.
func (t *Llmstream) Test(ctx context.Context) (string, error) {
	return t.goContainer().
		WithEnvVariable("CGO_ENABLED", "1").
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}

// MockServer runs "llmstream mock serve" as a service, for exercising
// clients against the mock backend from other pipelines.
func (t *Llmstream) MockServer() *dagger.Service {
	return t.goContainer().
		WithExec([]string{"go", "build", "-o", "/usr/local/bin/llmstream", "./cli/llmstream"}).
		WithExposedPort(8090).
		AsService(dagger.ContainerAsServiceOpts{
			Args: []string{"llmstream", "mock", "serve", "--listen", ":8090"},
		})
}
