package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"growth-charts/internal/logging"
	"growth-charts/internal/models"
	"growth-charts/internal/workspace"
)

// Mode selects how the artifact is handed from the program to the server
type Mode string

const (
	// ModeShared reads the artifact from one fixed path in WorkDir
	ModeShared Mode = "shared"
	// ModeScoped passes a request-scoped artifact path as a second argument
	ModeScoped Mode = "scoped"
	// ModeStdout takes the program's standard output as the artifact
	ModeStdout Mode = "stdout"
)

const (
	DefaultScript       = "curvas_de_crecimiento.py"
	DefaultArtifactName = "grafico_curvas_plotly.html"
)

// mtimeSlack absorbs coarse filesystem timestamps when checking that the
// shared artifact was written by the current run
const mtimeSlack = time.Second

// Modes lists every supported artifact mode
var Modes = []Mode{ModeShared, ModeScoped, ModeStdout}

// systemInterpreters are tried in order when no interpreter is configured
var systemInterpreters = []string{"python3", "python"}

// Config controls how the external chart program is invoked
type Config struct {
	Interpreter    string
	Script         string
	WorkDir        string
	ArtifactName   string
	Mode           Mode
	Timeout        time.Duration
	Env            []string
	MaxConcurrent  int
	MaxOutputBytes int
}

// Artifact is the HTML document produced for one identifier
type Artifact struct {
	Identifier string
	Content    string
	Result     *models.ExecutionResult
}

// Generator runs the chart program for an identifier and collects its artifact
type Generator struct {
	cfg        Config
	executor   Executor
	workspaces *workspace.Manager
	logger     zerolog.Logger

	sharedMu sync.Mutex
	sem      *semaphore.Weighted
	group    singleflight.Group

	lookPath func(string) (string, error)
	readFile func(string) ([]byte, error)
	statFile func(string) (os.FileInfo, error)
}

// New builds a Generator. A nil executor uses ProcessExecutor; workspaces
// is required in scoped mode.
func New(cfg Config, executor Executor, workspaces *workspace.Manager, logger zerolog.Logger) (*Generator, error) {
	if cfg.Script == "" {
		cfg.Script = DefaultScript
	}
	if cfg.ArtifactName == "" {
		cfg.ArtifactName = DefaultArtifactName
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeScoped
	}
	if !lo.Contains(Modes, cfg.Mode) {
		return nil, fmt.Errorf("unknown artifact mode %q", cfg.Mode)
	}
	if cfg.Mode == ModeScoped && workspaces == nil {
		return nil, errors.New("scoped mode requires a workspace manager")
	}
	if executor == nil {
		executor = &ProcessExecutor{MaxOutputBytes: cfg.MaxOutputBytes}
	}

	g := &Generator{
		cfg:        cfg,
		executor:   executor,
		workspaces: workspaces,
		logger:     logging.Component(logger, "generator"),
		lookPath:   exec.LookPath,
		readFile:   os.ReadFile,
		statFile:   os.Stat,
	}
	if cfg.MaxConcurrent > 0 {
		g.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return g, nil
}

// Mode returns the configured artifact mode
func (g *Generator) Mode() Mode {
	return g.cfg.Mode
}

// Generate runs the chart program for identifier and returns its artifact.
// Concurrent calls for the same identifier share a single run. A caller that
// gives up does not cancel a run other callers may be waiting on; the
// configured timeout bounds it instead.
func (g *Generator) Generate(ctx context.Context, identifier string) (*Artifact, error) {
	ch := g.group.DoChan(identifier, func() (any, error) {
		return g.generate(context.WithoutCancel(ctx), identifier)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Artifact), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Generator) generate(ctx context.Context, identifier string) (*Artifact, error) {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer g.sem.Release(1)
	}

	interpreter, err := g.interpreter()
	if err != nil {
		return nil, err
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	cmd := Command{
		Binary: interpreter,
		Args:   []string{g.cfg.Script, identifier},
		Dir:    g.cfg.WorkDir,
		Env:    g.cfg.Env,
	}

	var artifactPath string
	switch g.cfg.Mode {
	case ModeShared:
		// One file per deployment: run and read must not interleave
		g.sharedMu.Lock()
		defer g.sharedMu.Unlock()
		artifactPath = filepath.Join(g.cfg.WorkDir, g.cfg.ArtifactName)
	case ModeScoped:
		ws, err := g.workspaces.Allocate()
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := g.workspaces.Release(ws); err != nil {
				g.logger.Warn().Err(err).Str("workspace", ws.ID).Msg("failed to release workspace")
			}
		}()
		artifactPath = ws.ArtifactPath(g.cfg.ArtifactName)
		cmd.Args = append(cmd.Args, artifactPath)
	}

	g.logger.Debug().
		Str("interpreter", interpreter).
		Str("script", g.cfg.Script).
		Str("mode", string(g.cfg.Mode)).
		Int("identifier_len", len(identifier)).
		Msg("running chart program")

	started := time.Now()
	result, err := g.executor.Execute(ctx, cmd)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			g.logger.Warn().Dur("timeout", g.cfg.Timeout).Msg("chart program killed")
			return nil, fmt.Errorf("%w after %s", ErrTimeout, g.cfg.Timeout)
		}
		return nil, err
	}

	g.logger.Debug().
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Bool("truncated", result.Truncated).
		Msg("chart program finished")

	if !result.Success() {
		return nil, &ProcessError{ExitCode: result.ExitCode, Stderr: result.Stderr}
	}

	content := result.Stdout
	switch g.cfg.Mode {
	case ModeStdout:
		if result.Truncated {
			return nil, ErrArtifactTruncated
		}
	case ModeShared:
		// The file may be left over from an earlier run
		info, err := g.statFile(artifactPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingArtifact, err)
		}
		if info.ModTime().Before(started.Add(-mtimeSlack)) {
			return nil, fmt.Errorf("%w: %s was not written by this run", ErrStaleArtifact, artifactPath)
		}
	}
	if g.cfg.Mode != ModeStdout {
		data, err := g.readFile(artifactPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingArtifact, err)
		}
		content = string(data)
	}
	if content == "" {
		return nil, ErrEmptyArtifact
	}

	return &Artifact{
		Identifier: identifier,
		Content:    content,
		Result:     result,
	}, nil
}

// interpreter returns the configured interpreter or the first system one on PATH
func (g *Generator) interpreter() (string, error) {
	if g.cfg.Interpreter != "" {
		return g.cfg.Interpreter, nil
	}
	for _, name := range systemInterpreters {
		if path, err := g.lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoInterpreter
}
