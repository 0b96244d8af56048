package compressor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"sipc/internal/contenthash"
	"sipc/internal/events"
	"sipc/internal/logging"
	"sipc/internal/manifest"
	"sipc/internal/pack"
	"sipc/internal/services"
	"sipc/internal/transform"
)

// ErrUnsupportedVersion reports a manifest version without an adapter.
var ErrUnsupportedVersion = errors.New("unsupported pack version")

// NotFoundMessage is the error text for a reference with no readable entry.
const NotFoundMessage = "File not found"

// Job identifies one compression run.
type Job struct {
	// Source is the uploaded pack.
	Source string
	// Destination is where the compressed pack is written. Nothing exists
	// there unless the job succeeds.
	Destination string
	// ResultURL is announced in the Result event.
	ResultURL string
}

// Summary describes a finished job.
type Summary struct {
	Version    int
	ItemsCount int
	Compressed int
	Failed     int
	InputSize  int64
	OutputSize int64
	Duration   time.Duration
}

// Compressor runs pack rewrites.
type Compressor struct {
	transformer transform.Transformer
	level       int
	logger      *slog.Logger
}

// New builds a compressor writing archives at the given deflate level.
func New(transformer transform.Transformer, level int, logger *slog.Logger) *Compressor {
	return &Compressor{
		transformer: transformer,
		level:       level,
		logger:      logging.NewComponentLogger(logger, "compressor"),
	}
}

type run struct {
	job     Job
	pub     events.Publisher
	logger  *slog.Logger
	src     *pack.Reader
	dst     *pack.Writer
	adapter manifest.Adapter
	summary Summary
}

// Run rewrites job.Source into job.Destination, publishing progress to pub.
// The last event published is always Done.
func (c *Compressor) Run(ctx context.Context, job Job, pub events.Publisher) (summary Summary, err error) {
	started := time.Now()
	logger := logging.WithContext(ctx, c.logger)
	var partial string
	defer func() {
		if rec := recover(); rec != nil {
			err = services.Wrap(services.ErrTransient, "compressor", "run", fmt.Sprintf("panic: %v", rec), nil)
		}
		if err != nil && partial != "" {
			_ = os.Remove(partial)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedVersion) {
			pub.Publish(events.Failure(err.Error()))
			logger.Error("pack compression failed", logging.Error(err), logging.String(logging.FieldErrorKind, services.Classify(err)))
		}
		pub.Publish(events.Done())
	}()

	r := &run{job: job, pub: pub, logger: logger}
	src, err := pack.OpenReader(job.Source)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrNotFound, "compressor", "open source", "", err)
	}
	defer src.Close()
	r.src = src
	r.summary.InputSize = src.Size()

	doc, version, err := r.readManifest()
	if err != nil {
		return Summary{}, err
	}
	adapter, ok := manifest.ForVersion(version)
	if !ok {
		pub.Publish(events.Failure(fmt.Sprintf("Pack version %d not supported", version)))
		logger.Warn("unsupported pack version", logging.Int("version", version))
		return Summary{Version: version}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	r.adapter = adapter
	r.summary.Version = version

	partial = job.Destination + ".partial"
	dst, err := pack.Create(partial, c.level)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "compressor", "create destination", "", err)
	}
	defer dst.Close()
	r.dst = dst

	r.summary.ItemsCount = adapter.CountOptimizable(src.Entries())
	pub.Publish(events.Info(src.Size(), version, r.summary.ItemsCount))
	logger.Info("pack compression started",
		logging.Int("version", version),
		logging.Int("items", r.summary.ItemsCount),
		logging.Int64("input_size", src.Size()),
	)

	for _, ref := range adapter.References(doc) {
		if err := ctx.Err(); err != nil {
			return Summary{}, services.Wrap(services.ErrTransient, "compressor", "process items", "cancelled", err)
		}
		c.processReference(ctx, r, ref)
	}

	manifestBytes, err := doc.Bytes()
	if err != nil {
		return Summary{}, err
	}
	if _, err := dst.WriteFile(pack.ManifestName, manifestBytes); err != nil {
		return Summary{}, err
	}
	pub.Publish(events.Message("Write " + pack.ManifestName + "..."))

	for _, name := range pack.AuxiliaryFiles {
		data, readErr := src.ReadFile(name)
		if readErr != nil {
			continue
		}
		if _, err := dst.WriteFile(name, data); err != nil {
			return Summary{}, err
		}
		pub.Publish(events.Message("Write " + name + "..."))
	}

	if err := dst.Close(); err != nil {
		return Summary{}, err
	}
	if err := os.Rename(partial, job.Destination); err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "compressor", "finalize", "", err)
	}
	if info, statErr := os.Stat(job.Destination); statErr == nil {
		r.summary.OutputSize = info.Size()
	}
	r.summary.Duration = time.Since(started)

	pub.Publish(events.Result(job.ResultURL))
	logger.Info("pack compression finished",
		logging.Int("compressed", r.summary.Compressed),
		logging.Int("failed", r.summary.Failed),
		logging.Int64("input_size", r.summary.InputSize),
		logging.Int64("output_size", r.summary.OutputSize),
		logging.Duration("duration", r.summary.Duration),
	)
	return r.summary, nil
}

func (r *run) readManifest() (*manifest.Document, int, error) {
	data, err := r.src.ReadFile(pack.ManifestName)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrNotFound, "compressor", "read manifest", "", err)
	}
	doc, err := manifest.Parse(data)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrDecode, "compressor", "parse manifest", "", err)
	}
	version, err := doc.Version()
	if err != nil {
		return nil, 0, services.Wrap(services.ErrDecode, "compressor", "read manifest version", "", err)
	}
	return doc, version, nil
}

// processReference handles one media reference. It never fails the job.
func (c *Compressor) processReference(ctx context.Context, r *run, ref manifest.Reference) {
	kind := ref.Kind.String()
	name := ref.Name()

	entry, original, err := r.src.ReadFirst(r.adapter.Candidates(ref.Kind, ref.Raw))
	if err != nil {
		r.summary.Failed++
		r.pub.Publish(events.ItemError(kind, name, 0, NotFoundMessage))
		r.logger.Warn("referenced asset missing", logging.String("kind", kind), logging.String("name", name))
		return
	}

	carryOver := func(reason error) {
		r.summary.Failed++
		if _, err := r.dst.WriteFile(entry, original); err != nil {
			reason = errors.Join(reason, err)
		}
		r.pub.Publish(events.ItemError(kind, name, int64(len(original)), reason.Error()))
		r.logger.Warn("asset kept unoptimised",
			logging.String("kind", kind),
			logging.String("name", name),
			logging.String(logging.FieldErrorKind, services.Classify(reason)),
			logging.Error(reason),
		)
	}
	defer func() {
		if p := recover(); p != nil {
			carryOver(services.Wrap(services.ErrTransient, "compressor", "item", fmt.Sprintf("panic: %v", p), nil))
		}
	}()

	outcome := c.transformer.Optimize(ctx, ref.Kind, path.Ext(name), original)
	if outcome.Degraded() {
		carryOver(outcome.Err)
		return
	}

	newName := contenthash.Name(outcome.Data, strings.ToLower(outcome.Ext))
	if _, err := r.dst.WriteFile(ref.Kind.Prefix()+newName, outcome.Data); err != nil {
		carryOver(err)
		return
	}
	r.adapter.Rewrite(ref, newName)
	r.summary.Compressed++
	r.pub.Publish(events.Compressed(kind, name, newName, int64(len(original)), int64(len(outcome.Data))))
	r.logger.Debug("asset compressed",
		logging.String("kind", kind),
		logging.String("name", name),
		logging.String("new_name", newName),
		logging.Int64("old_size", int64(len(original))),
		logging.Int64("new_size", int64(len(outcome.Data))),
	)
}
