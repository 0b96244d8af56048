package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sipc/internal/config"
	"sipc/internal/logging"
	"sipc/internal/manifest"
	"sipc/internal/services"
)

// Outcome is the result of optimising one asset. When Err is set, Ext and
// Data are the caller's original extension and bytes.
type Outcome struct {
	Ext  string
	Data []byte
	Err  error
}

// Degraded reports whether the optimisation fell back to the original bytes.
func (o Outcome) Degraded() bool {
	return o.Err != nil
}

func fallback(ext string, data []byte, err error) Outcome {
	return Outcome{Ext: ext, Data: data, Err: err}
}

// Transformer optimises one asset.
type Transformer interface {
	Optimize(ctx context.Context, kind manifest.Kind, ext string, data []byte) Outcome
}

// Dispatcher routes assets to the image codec or ffmpeg by kind.
type Dispatcher struct {
	images ImageCodec
	ffmpeg *FFmpeg
	logger *slog.Logger
}

// NewDispatcher builds a dispatcher from the compress section of cfg.
func NewDispatcher(cfg *config.Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		images: ImageCodec{
			MaxDimension: cfg.Compress.ImageMaxDimension,
			Quality:      cfg.Compress.WebPQuality,
		},
		ffmpeg: &FFmpeg{
			Binary:       cfg.Compress.FFmpegBinary,
			Timeout:      cfg.TranscodeTimeout(),
			VideoCRF:     cfg.Compress.VideoCRF,
			VideoWidth:   cfg.Compress.VideoMaxWidth,
			VideoHeight:  cfg.Compress.VideoMaxHeight,
			AudioBitrate: cfg.Compress.AudioBitrate,
		},
		logger: logging.NewComponentLogger(logger, "transform"),
	}
}

// Optimize implements Transformer. It never panics.
func (d *Dispatcher) Optimize(ctx context.Context, kind manifest.Kind, ext string, data []byte) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = fallback(ext, data, services.Wrap(services.ErrTransient, "transform", kind.String(), fmt.Sprintf("panic: %v", r), nil))
		}
	}()

	var (
		newExt string
		result []byte
		err    error
	)
	switch kind {
	case manifest.KindImage:
		newExt, result, err = d.images.Optimize(strings.ToLower(ext), data)
	case manifest.KindVideo:
		newExt = ".mp4"
		result, err = d.ffmpeg.Video(ctx, data)
	case manifest.KindAudio:
		newExt = ".mp3"
		result, err = d.ffmpeg.Audio(ctx, data)
	default:
		err = services.Wrap(services.ErrUnsupported, "transform", "dispatch", fmt.Sprintf("unknown asset kind %q", kind), nil)
	}
	if err != nil {
		logging.WithContext(ctx, d.logger).Debug("asset optimisation fell back to original",
			logging.String("kind", kind.String()),
			logging.String("ext", ext),
			logging.String(logging.FieldErrorKind, services.Classify(err)),
			logging.Error(err),
		)
		return fallback(ext, data, err)
	}
	return Outcome{Ext: newExt, Data: result}
}
