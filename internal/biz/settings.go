package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

// Settings bounds and defaults.
const (
	MinIntervalMinutes       = 15
	MaxIntervalMinutes       = 120
	DefaultIntervalMinutes   = 30
	MinFlagThreshold         = 0.5
	MaxFlagThreshold         = 0.95
	DefaultFlagThreshold     = 0.8
	DefaultMaxCommentsPerURL = 200
	MaxMonitoredURLs         = 50
)

// Connector feature flags.
const (
	ConnectorGraph   = "ig_graph"
	ConnectorSession = "ig_session"
)

// Settings is the user-facing configuration kept in the state store.
type Settings struct {
	IntervalMinutes   int             `json:"interval_minutes"`
	FlagThreshold     float64         `json:"flag_threshold"`
	UseQuantizedModel bool            `json:"use_quantized_model"`
	UseLlm            bool            `json:"use_llm"`
	MaxCommentsPerURL int             `json:"max_comments_per_url"`
	Connectors        map[string]bool `json:"connectors"`
	MonitoredURLs     []string        `json:"monitored_urls"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		IntervalMinutes:   DefaultIntervalMinutes,
		FlagThreshold:     DefaultFlagThreshold,
		MaxCommentsPerURL: DefaultMaxCommentsPerURL,
		Connectors:        map[string]bool{},
	}
}

// Normalize clamps every field into its valid range.
func (s Settings) Normalize() Settings {
	s.IntervalMinutes = clampInt(s.IntervalMinutes, MinIntervalMinutes, MaxIntervalMinutes)
	s.FlagThreshold = clampFloat(s.FlagThreshold, MinFlagThreshold, MaxFlagThreshold)
	if s.MaxCommentsPerURL <= 0 {
		s.MaxCommentsPerURL = DefaultMaxCommentsPerURL
	}
	connectors := make(map[string]bool, len(s.Connectors))
	for k, v := range s.Connectors {
		if k = strings.TrimSpace(k); k != "" {
			connectors[k] = v
		}
	}
	s.Connectors = connectors
	urls := make([]string, 0, len(s.MonitoredURLs))
	seen := make(map[string]struct{}, len(s.MonitoredURLs))
	for _, u := range s.MonitoredURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	s.MonitoredURLs = retainLast(urls, MaxMonitoredURLs)
	return s
}

// ConnectorEnabled reports the flag for a connector key.
func (s Settings) ConnectorEnabled(key string) bool {
	return s.Connectors[key]
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := s
	c.Connectors = make(map[string]bool, len(s.Connectors))
	for k, v := range s.Connectors {
		c.Connectors[k] = v
	}
	c.MonitoredURLs = append([]string(nil), s.MonitoredURLs...)
	return c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SettingsUsecase reads and writes user settings.
type SettingsUsecase struct {
	repo StateRepo
	log  *log.Helper
}

// NewSettingsUsecase creates a SettingsUsecase.
func NewSettingsUsecase(repo StateRepo, logger log.Logger) *SettingsUsecase {
	return &SettingsUsecase{repo: repo, log: log.NewHelper(logger)}
}

// Get returns the current settings.
func (uc *SettingsUsecase) Get(ctx context.Context) (Settings, error) {
	var s Settings
	err := uc.repo.View(ctx, func(tx StateTx) error {
		var err error
		s, err = tx.Settings()
		return err
	})
	return s, err
}

// Save clamps and stores the settings, returning what was stored.
func (uc *SettingsUsecase) Save(ctx context.Context, s Settings) (Settings, error) {
	s = s.Normalize()
	err := uc.repo.Update(ctx, func(tx StateTx) error {
		prev, err := tx.Settings()
		if err != nil {
			return err
		}
		if err := tx.SaveSettings(s); err != nil {
			return err
		}
		for _, line := range settingsDiff(prev, s) {
			if err := tx.AppendLog(line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	uc.log.Infof("settings saved: interval=%dm threshold=%.2f quant=%t llm=%t",
		s.IntervalMinutes, s.FlagThreshold, s.UseQuantizedModel, s.UseLlm)
	return s, nil
}

// SetCredential stores connector credentials.
func (uc *SettingsUsecase) SetCredential(ctx context.Context, provider string, c Credential) error {
	return uc.repo.Update(ctx, func(tx StateTx) error {
		if err := tx.SetCredential(provider, c); err != nil {
			return err
		}
		return tx.AppendLog("settings:credential " + provider)
	})
}

// ClearProvider wipes stored credentials of a provider.
func (uc *SettingsUsecase) ClearProvider(ctx context.Context, provider string) error {
	return uc.repo.Update(ctx, func(tx StateTx) error {
		if err := tx.ClearProvider(provider); err != nil {
			return err
		}
		return tx.AppendLog("settings:wipe " + provider)
	})
}

func settingsDiff(prev, next Settings) []string {
	var lines []string
	if prev.IntervalMinutes != next.IntervalMinutes {
		lines = append(lines, fmt.Sprintf("settings:interval %d", next.IntervalMinutes))
	}
	if prev.FlagThreshold != next.FlagThreshold {
		lines = append(lines, fmt.Sprintf("settings:threshold %.2f", next.FlagThreshold))
	}
	if prev.UseQuantizedModel != next.UseQuantizedModel {
		lines = append(lines, fmt.Sprintf("settings:quant %t", next.UseQuantizedModel))
	}
	if prev.UseLlm != next.UseLlm {
		lines = append(lines, fmt.Sprintf("settings:llm %t", next.UseLlm))
	}
	for k, v := range next.Connectors {
		if prev.Connectors[k] != v {
			lines = append(lines, fmt.Sprintf("settings:%s %t", k, v))
		}
	}
	return lines
}
