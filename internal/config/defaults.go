package config

const (
	defaultStorageDir        = "~/.local/share/sipc/storage"
	defaultLogDir            = "~/.local/share/sipc/logs"
	defaultBind              = "127.0.0.1:8000"
	defaultMaxUploadMB       = 1024
	defaultPingInterval      = 30
	defaultImageMaxDimension = 800
	defaultWebPQuality       = 80
	defaultFFmpegBinary      = "ffmpeg"
	defaultTranscodeTimeout  = 300
	defaultVideoCRF          = 28
	defaultVideoMaxWidth     = 1024
	defaultVideoMaxHeight    = 664
	defaultAudioBitrate      = "64k"
	defaultCompressionLevel  = 9
	defaultMaxConcurrent     = 2
	defaultSessionTTL        = 3600
	defaultSweepInterval     = 300
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
		},
		Server: Server{
			Bind:           defaultBind,
			AllowedOrigins: []string{"*"},
			MaxUploadMB:    defaultMaxUploadMB,
			PingInterval:   defaultPingInterval,
		},
		Compress: Compress{
			ImageMaxDimension: defaultImageMaxDimension,
			WebPQuality:       defaultWebPQuality,
			FFmpegBinary:      defaultFFmpegBinary,
			TranscodeTimeout:  defaultTranscodeTimeout,
			VideoCRF:          defaultVideoCRF,
			VideoMaxWidth:     defaultVideoMaxWidth,
			VideoMaxHeight:    defaultVideoMaxHeight,
			AudioBitrate:      defaultAudioBitrate,
			CompressionLevel:  defaultCompressionLevel,
		},
		Jobs: Jobs{
			MaxConcurrent: defaultMaxConcurrent,
			SessionTTL:    defaultSessionTTL,
			SweepInterval: defaultSweepInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
