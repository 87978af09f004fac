// Package pipeline wires the container-engine client, packer, and result
// extractor into a single operation: Submission in, Output out. It is
// written as flat sequential Go rather than nested combinators — an early
// `return` on a non-nil error already gives each stage the guarantee that
// the previous one succeeded.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	units "github.com/docker/go-units"

	"github.com/akshayaggarwal99/codebox/internal/config"
	"github.com/akshayaggarwal99/codebox/internal/engine"
	"github.com/akshayaggarwal99/codebox/internal/extract"
	"github.com/akshayaggarwal99/codebox/internal/pack"
	"github.com/akshayaggarwal99/codebox/internal/submission"
)

// Pipeline holds the shared, reusable collaborators: the container-engine
// client (a thread-safe connection pool) and the packer's worker pool.
type Pipeline struct {
	client *engine.Client
	packer *pack.Packer
	langs  *config.Languages
}

// New builds a Pipeline from its collaborators.
func New(client *engine.Client, packer *pack.Packer, langs *config.Languages) *Pipeline {
	return &Pipeline{client: client, packer: packer, langs: langs}
}

// Execute runs a submission end to end: pack -> build -> extract -> create
// -> start -> attach -> demux.
func (p *Pipeline) Execute(ctx context.Context, sub submission.Submission) (submission.Output, error) {
	spec, ok := p.langs.Lookup(sub.Lang)
	if !ok {
		return submission.Output{}, submission.Wrap(submission.ErrBadRequest, fmt.Errorf("unknown lang %q", sub.Lang))
	}

	tarBuf, err := p.packer.Pack(ctx, spec, sub)
	if err != nil {
		return submission.Output{}, submission.Wrap(submission.ErrBadConfig, err)
	}

	buildDec, err := p.client.BuildImage(ctx, tarBuf, engine.BuildParams{Dockerfile: "Dockerfile", Quiet: true})
	if err != nil {
		return submission.Output{}, submission.Wrap(submission.ErrEngine, err)
	}

	state := extract.State{}
	for {
		ev, err := buildDec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return submission.Output{}, submission.Wrap(submission.ErrUnknown, err)
		}
		state = state.Apply(ev)
	}

	imageID, compileErr, ok := state.Outcome()
	if !ok {
		return submission.Output{}, submission.Wrap(submission.ErrUnknown, fmt.Errorf("build stream yielded no image id or error"))
	}
	if compileErr != "" {
		return submission.NewCompileErrorOutput(compileErr), nil
	}

	containerID, err := p.client.CreateContainer(ctx, containerConfig(imageID), hostConfig())
	if err != nil {
		return submission.Output{}, submission.Wrap(submission.ErrEngine, err)
	}

	if err := p.client.StartContainer(ctx, containerID); err != nil {
		return submission.Output{}, submission.Wrap(submission.ErrEngine, err)
	}

	logDec, err := p.client.AttachLogs(ctx, containerID)
	if err != nil {
		return submission.Output{}, submission.Wrap(submission.ErrEngine, err)
	}

	var stdout, stderr strings.Builder
	for {
		frame, err := logDec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return submission.Output{}, submission.Wrap(submission.ErrUnknown, err)
		}
		switch frame.Stream {
		case engine.LogStdout:
			stdout.Write(frame.Payload)
		case engine.LogStderr:
			stderr.Write(frame.Payload)
		case engine.LogStdin:
			// no consumer ever reads it back.
		}
	}

	return submission.NewExecutionOutput(
		strings.ToValidUTF8(stdout.String(), "�"),
		strings.ToValidUTF8(stderr.String(), "�"),
	), nil
}

// containerConfig and hostConfig build the container-create request body
// using the typed docker/docker/api/types/container structs instead of
// hand-rolled maps.
func containerConfig(imageID string) container.Config {
	return container.Config{
		Image:           imageID,
		NetworkDisabled: true,
	}
}

func hostConfig() container.HostConfig {
	pidsLimit := int64(1024)
	return container.HostConfig{
		AutoRemove: true,
		Resources: container.Resources{
			CpusetCpus: "2-3",
			PidsLimit:  &pidsLimit,
			Ulimits: []*units.Ulimit{
				{Name: "cpu", Hard: 1, Soft: 1},
			},
			Memory:     1073741824,
			MemorySwap: 1073741824,
			DiskQuota:  10737418240,
		},
	}
}
