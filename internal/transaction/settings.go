package transaction

import (
	"github.com/hbgo/capture/internal/dates"
	"github.com/hbgo/capture/internal/scanning"
)

// Settings are the user's runtime preferences. They live in the database and
// are threaded explicitly into the pipeline; nothing reads them ambiently.
type Settings struct {
	EngineMode      scanning.Mode `json:"engine_mode"`
	AutoFallback    bool          `json:"auto_fallback"`
	LocalModel      string        `json:"local_model"`
	DefaultMethod   string        `json:"default_method"`
	DefaultCategory string        `json:"default_category"`
	DefaultTag      string        `json:"default_tag"`
	DateFormat      dates.Format  `json:"date_format"`
}

// DefaultSettings mirrors the defaults a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{
		EngineMode:   scanning.ModeLocal,
		AutoFallback: true,
		LocalModel:   "llava",
		DefaultTag:   "mobile-import",
		DateFormat:   dates.DayMonthYear,
	}
}
