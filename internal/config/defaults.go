package config

const (
	defaultWorkspaceDir       = "~/.local/share/reelsmith/workspace"
	defaultLogDir             = "~/.local/share/reelsmith/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMReferer         = "https://github.com/reelsmith/reelsmith"
	defaultLLMTitle           = "Reelsmith"
	defaultLLMTimeoutSeconds  = 60
	defaultTranscriptTimeout  = 30
	defaultTranscriptRetries  = 3
	defaultSpeechBinary       = "edge-tts"
	defaultSpeechVoice        = "en-US-GuyNeural"
	defaultSpeechTimeout      = 600
	defaultCaptionsBinary     = "whisperx"
	defaultCaptionsModel      = "large-v3-turbo"
	defaultCaptionsTimeout    = 900
	defaultImageGenBaseURL    = "https://image.pollinations.ai/prompt"
	defaultImageWidth         = 1920
	defaultImageHeight        = 1080
	defaultImageSceneCount    = 10
	defaultImageGenTimeout    = 120
	defaultRenderBinary       = "ffmpeg"
	defaultRenderTimeout      = 3600
	defaultStorageBucket      = "reelsmith"
	defaultStorageURLExpiry   = 24
	defaultPublishCategory    = "22"
	defaultPublishPrivacy     = "private"
	defaultPublishLanguage    = "en"
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Transcript: Transcript{
			TimeoutSeconds: defaultTranscriptTimeout,
			RetryAttempts:  defaultTranscriptRetries,
		},
		Speech: Speech{
			Binary:         defaultSpeechBinary,
			Voice:          defaultSpeechVoice,
			TimeoutSeconds: defaultSpeechTimeout,
		},
		Captions: Captions{
			Binary:         defaultCaptionsBinary,
			Model:          defaultCaptionsModel,
			TimeoutSeconds: defaultCaptionsTimeout,
		},
		ImageGen: ImageGen{
			BaseURL:        defaultImageGenBaseURL,
			Width:          defaultImageWidth,
			Height:         defaultImageHeight,
			SceneCount:     defaultImageSceneCount,
			TimeoutSeconds: defaultImageGenTimeout,
		},
		Render: Render{
			Binary:         defaultRenderBinary,
			TimeoutSeconds: defaultRenderTimeout,
			EffectSetA:     []string{"eq=saturation=1.25:contrast=1.06", "vignette=angle=PI/5"},
			EffectSetB:     []string{"curves=preset=vintage", "noise=alls=6:allf=t"},
		},
		Storage: Storage{
			Bucket:         defaultStorageBucket,
			URLExpiryHours: defaultStorageURLExpiry,
		},
		Publish: Publish{
			CategoryID:      defaultPublishCategory,
			Privacy:         defaultPublishPrivacy,
			DefaultLanguage: defaultPublishLanguage,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Stages:         true,
			Publishes:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
