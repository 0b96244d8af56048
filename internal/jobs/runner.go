package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"sipc/internal/compressor"
	"sipc/internal/config"
	"sipc/internal/contenthash"
	"sipc/internal/events"
	"sipc/internal/logging"
	"sipc/internal/services"
	"sipc/internal/store"
)

// Submission identifies an accepted upload.
type Submission struct {
	JobID string
	Token string
	Hash  string
	Name  string
	Size  int64
}

// Runner schedules compression jobs.
type Runner struct {
	cfg        *config.Config
	store      *store.Store
	registry   *events.Registry
	compressor *compressor.Compressor
	logger     *slog.Logger

	sem     chan struct{}
	wg      sync.WaitGroup
	running atomic.Int64

	locksMu sync.Mutex
	locks   map[string]*hashLock
}

type hashLock struct {
	mu   sync.Mutex
	refs int
}

// New constructs a runner. Concurrency comes from jobs.max_concurrent.
func New(cfg *config.Config, st *store.Store, registry *events.Registry, comp *compressor.Compressor, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || st == nil || registry == nil || comp == nil {
		return nil, errors.New("jobs runner requires config, store, registry, and compressor")
	}
	limit := cfg.Jobs.MaxConcurrent
	if limit < 1 {
		limit = 1
	}
	return &Runner{
		cfg:        cfg,
		store:      st,
		registry:   registry,
		compressor: comp,
		logger:     logging.NewComponentLogger(logger, "jobs"),
		sem:        make(chan struct{}, limit),
		locks:      make(map[string]*hashLock),
	}, nil
}

// InputPath is where the uploaded pack with this hash is stored.
func (r *Runner) InputPath(hash string) string {
	return filepath.Join(r.cfg.Paths.StorageDir, hash+".siq")
}

// OutputPath is where the compressed pack with this hash is written.
func (r *Runner) OutputPath(hash string) string {
	return filepath.Join(r.cfg.Paths.StorageDir, hash+"-compressed.siq")
}

// ResultURL is the download location announced when a job succeeds.
func ResultURL(hash string) string {
	return "/download/" + hash
}

// Running returns the number of jobs currently compressing.
func (r *Runner) Running() int {
	return int(r.running.Load())
}

// Wait blocks until every scheduled job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Submit stores body, registers it, and schedules its compression. It returns
// once the job is scheduled.
func (r *Runner) Submit(ctx context.Context, token, filename string, body io.Reader) (Submission, error) {
	if strings.TrimSpace(token) == "" {
		return Submission{}, services.Wrap(services.ErrConfiguration, "jobs", "submit", "session token is required", nil)
	}
	hash, size, err := r.storeUpload(body)
	if err != nil {
		return Submission{}, err
	}

	name := displayName(filename)
	if _, err := r.store.Add(ctx, hash, name); err != nil {
		return Submission{}, services.Wrap(services.ErrTransient, "jobs", "register pack", "", err)
	}

	sub := Submission{
		JobID: uuid.NewString(),
		Token: token,
		Hash:  hash,
		Name:  name,
		Size:  size,
	}
	ch := r.registry.Acquire(token)

	jobCtx := context.WithoutCancel(ctx)
	jobCtx = services.WithJobID(jobCtx, sub.JobID)
	jobCtx = services.WithToken(jobCtx, token)
	jobCtx = services.WithPackHash(jobCtx, hash)

	logging.WithContext(jobCtx, r.logger).Info("pack accepted",
		logging.String("name", name),
		logging.Int64("upload_size", size),
	)

	r.wg.Add(1)
	go r.execute(jobCtx, sub, ch)
	return sub, nil
}

// storeUpload streams body to a temp file while hashing, then moves it to its
// content-addressed location.
func (r *Runner) storeUpload(body io.Reader) (string, int64, error) {
	tmp, err := os.CreateTemp(r.cfg.Paths.StorageDir, "upload-*.partial")
	if err != nil {
		return "", 0, services.Wrap(services.ErrTransient, "jobs", "store upload", "create temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	hash, size, err := contenthash.SumReader(io.TeeReader(body, tmp))
	closeErr := tmp.Close()
	if err != nil {
		cleanup()
		return "", 0, services.Wrap(services.ErrTransient, "jobs", "store upload", "read upload", err)
	}
	if closeErr != nil {
		cleanup()
		return "", 0, services.Wrap(services.ErrTransient, "jobs", "store upload", "close temp file", closeErr)
	}

	if err := os.Rename(tmpPath, r.InputPath(hash)); err != nil {
		cleanup()
		return "", 0, services.Wrap(services.ErrTransient, "jobs", "store upload", "move upload into storage", err)
	}
	return hash, size, nil
}

func (r *Runner) execute(ctx context.Context, sub Submission, ch *events.Channel) {
	defer r.wg.Done()
	logger := logging.WithContext(ctx, r.logger)

	r.sem <- struct{}{}
	defer func() { <-r.sem }()
	unlock := r.lockHash(sub.Hash)
	defer unlock()

	r.running.Add(1)
	defer r.running.Add(-1)

	if err := r.store.SetStatus(ctx, sub.Hash, store.StatusProcessing, ""); err != nil {
		logger.Warn("failed to record job start", logging.Error(err))
	}

	// The pack must read as completed before the client sees the result.
	pub := events.PublisherFunc(func(e events.Event) {
		if e.Type == events.TypeResult {
			if err := r.store.SetStatus(ctx, sub.Hash, store.StatusCompleted, ""); err != nil {
				logger.Warn("failed to record job completion", logging.Error(err))
			}
		}
		ch.Publish(e)
	})

	summary, err := r.compressor.Run(ctx, compressor.Job{
		Source:      r.InputPath(sub.Hash),
		Destination: r.OutputPath(sub.Hash),
		ResultURL:   ResultURL(sub.Hash),
	}, pub)
	if err != nil {
		if statusErr := r.store.SetStatus(ctx, sub.Hash, store.StatusFailed, err.Error()); statusErr != nil {
			logger.Warn("failed to record job failure", logging.Error(statusErr))
		}
		return
	}
	logger.Info("job finished",
		logging.Int("compressed", summary.Compressed),
		logging.Int("failed", summary.Failed),
		logging.Int64("output_size", summary.OutputSize),
	)
}

// RunLocal compresses in into out with comp, announcing out as the result.
func RunLocal(ctx context.Context, comp *compressor.Compressor, in, out string, pub events.Publisher) (compressor.Summary, error) {
	if comp == nil {
		return compressor.Summary{}, errors.New("compressor unavailable")
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return compressor.Summary{}, fmt.Errorf("resolve output path: %w", err)
	}
	ctx = services.WithJobID(ctx, uuid.NewString())
	return comp.Run(ctx, compressor.Job{Source: in, Destination: abs, ResultURL: abs}, pub)
}

func (r *Runner) lockHash(hash string) func() {
	r.locksMu.Lock()
	lock, ok := r.locks[hash]
	if !ok {
		lock = &hashLock{}
		r.locks[hash] = lock
	}
	lock.refs++
	r.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		r.locksMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(r.locks, hash)
		}
		r.locksMu.Unlock()
	}
}

// displayName is the upload's base name without its extension.
func displayName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if base == "." || base == "/" {
		return "pack"
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return "pack"
	}
	return name
}
