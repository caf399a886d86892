package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Extraction service.
	APIBaseURL string `env:"AUDIOTEXT_API_URL"`
	APIKey     string `env:"AUDIOTEXT_API_KEY"`

	// Speech backend: "piper", "espeak", "mock", or "auto".
	Engine     string `env:"AUDIOTEXT_ENGINE" envDefault:"auto"`
	PiperModel string `env:"AUDIOTEXT_PIPER_MODEL"`

	// Playback rate multiplier.
	Speed float64

	// Rendering.
	GlamourMaxWidth uint
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	EnableMouse     bool

	HomeDir string `env:"HOME"`

	// URL to start playing immediately, bypassing the home prompt.
	StartURL string
}
