package pipeline

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayaggarwal99/codebox/internal/config"
	"github.com/akshayaggarwal99/codebox/internal/engine"
	"github.com/akshayaggarwal99/codebox/internal/pack"
	"github.com/akshayaggarwal99/codebox/internal/submission"
)

func newStubEngine(t *testing.T, handler http.Handler) *engine.Client {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "engine.sock")
	l, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	srv := &httptest.Server{Listener: l, Config: &http.Server{Handler: handler}}
	srv.Start()
	t.Cleanup(srv.Close)

	c, err := engine.NewClient(sockPath)
	require.NoError(t, err)
	return c
}

func testLanguages(t *testing.T) *config.Languages {
	t.Helper()
	dir := t.TempDir()
	recipe := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(recipe, []byte("FROM scratch\n"), 0644))
	yamlPath := filepath.Join(dir, "languages.yaml")
	contents := "languages:\n  c:\n    recipe_path: " + recipe + "\n    source_filename: code.c\n"
	require.NoError(t, os.WriteFile(yamlPath, []byte(contents), 0644))
	langs, err := config.Load(yamlPath)
	require.NoError(t, err)
	return langs
}

func mux(build, create, start, logs http.HandlerFunc) http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/v1.30/build", build)
	m.HandleFunc("/v1.30/containers/create", create)
	m.HandleFunc("/v1.30/containers/abc/start", start)
	m.HandleFunc("/v1.30/containers/abc/logs", logs)
	return m
}

func TestPipeline_Execute_Success(t *testing.T) {
	build := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"stream":"Step 1/1 : FROM scratch\n"}{"stream":"sha256:abc123\n"}`))
	}
	create := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"Id":"abc","Warnings":[]}`))
	}
	start := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }
	logs := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(frame(1, "hello"))
	}

	client := newStubEngine(t, mux(build, create, start, logs))
	packer := pack.NewPacker()
	defer packer.Close()
	p := New(client, packer, testLanguages(t))

	out, err := p.Execute(context.Background(), submission.Submission{Code: "int main(){return 0;}", Lang: "c"})
	require.NoError(t, err)
	assert.False(t, out.IsCompileError())
	assert.Equal(t, "hello", out.Stdout)
	assert.Equal(t, "", out.Stderr)
}

func TestPipeline_Execute_CompileError(t *testing.T) {
	build := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"stream":"Step 1/1 : RUN cc code.c\n"}{"stream":"error: expected ';'\n"}` +
			`{"errorDetail":{"code":1,"message":"non-zero code"},"error":"non-zero code"}`))
	}
	client := newStubEngine(t, mux(build, nil, nil, nil))
	packer := pack.NewPacker()
	defer packer.Close()
	p := New(client, packer, testLanguages(t))

	out, err := p.Execute(context.Background(), submission.Submission{Code: "garbage", Lang: "c"})
	require.NoError(t, err)
	assert.True(t, out.IsCompileError())
	assert.Equal(t, "error: expected ';'\n", out.CompileError)
}

func TestPipeline_Execute_UnknownLangIsBadRequest(t *testing.T) {
	client := newStubEngine(t, mux(nil, nil, nil, nil))
	packer := pack.NewPacker()
	defer packer.Close()
	p := New(client, packer, testLanguages(t))

	_, err := p.Execute(context.Background(), submission.Submission{Code: "x", Lang: "cobol"})
	require.Error(t, err)
	var subErr *submission.Error
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, submission.ErrBadRequest, subErr.Kind)
}

func TestPipeline_Execute_TwoStreamDemux(t *testing.T) {
	build := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"stream":"sha256:abc123\n"}`))
	}
	create := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"Id":"abc","Warnings":[]}`))
	}
	start := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }
	logs := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(frame(2, "err"))
		_, _ = w.Write(frame(1, "ok"))
	}

	client := newStubEngine(t, mux(build, create, start, logs))
	packer := pack.NewPacker()
	defer packer.Close()
	p := New(client, packer, testLanguages(t))

	out, err := p.Execute(context.Background(), submission.Submission{Code: "x", Lang: "c"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Stdout)
	assert.Equal(t, "err", out.Stderr)
}

func TestPipeline_Execute_BuildBadRequestIsEngineError(t *testing.T) {
	build := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad dockerfile"}`))
	}
	client := newStubEngine(t, mux(build, nil, nil, nil))
	packer := pack.NewPacker()
	defer packer.Close()
	p := New(client, packer, testLanguages(t))

	_, err := p.Execute(context.Background(), submission.Submission{Code: "x", Lang: "c"})
	require.Error(t, err)
	var subErr *submission.Error
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, submission.ErrEngine, subErr.Kind)
}

func TestPipeline_Execute_CreateContainerCantAttach(t *testing.T) {
	build := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"stream":"sha256:abc123\n"}`))
	}
	create := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"message":"no tty"}`))
	}
	client := newStubEngine(t, mux(build, create, nil, nil))
	packer := pack.NewPacker()
	defer packer.Close()
	p := New(client, packer, testLanguages(t))

	_, err := p.Execute(context.Background(), submission.Submission{Code: "x", Lang: "c"})
	require.Error(t, err)
	var subErr *submission.Error
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, submission.ErrEngine, subErr.Kind)
	var engErr *engine.Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, engine.ErrCantAttach, engErr.Kind)
}

func frame(tag byte, payload string) []byte {
	var header [8]byte
	header[0] = tag
	size := uint32(len(payload))
	header[4] = byte(size >> 24)
	header[5] = byte(size >> 16)
	header[6] = byte(size >> 8)
	header[7] = byte(size)
	return append(header[:], []byte(payload)...)
}
