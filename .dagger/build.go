package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/quilt/internal/dagger"
)

// Build compiles the quiltd binary and returns the output directory.
//
// The sqlite drivers need CGO, so builds run natively in the bookworm
// container rather than cross-compiling a matrix.
func (q *Quilt) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	build := q.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", "build/", "./cli/quiltd"})

	return build.Directory("build")
}

// BuildRelease compiles versioned release binaries with embedded version info
func (q *Quilt) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/quiltmem/quilt/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/quiltmem/quilt/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/quiltmem/quilt/pkg/utils.Buildtime=%s'", buildtime),
	}

	return q.Build(ctx, strings.Join(ldflags, " "))
}
