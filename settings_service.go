package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Settings struct {
	XPlaneHost   string `json:"xplaneHost"`
	XPlanePort   int    `json:"xplanePort"`
	LocalPort    int    `json:"localPort"`
	TickMs       int    `json:"tickMs"`
	DebounceMs   int    `json:"debounceMs"`
	StalenessSec int    `json:"stalenessSec"`
	LogLevel     string `json:"logLevel"`
}

func defaultSettings() Settings {
	return Settings{
		XPlaneHost:   "127.0.0.1",
		XPlanePort:   49000,
		LocalPort:    0,
		TickMs:       20,
		DebounceMs:   50,
		StalenessSec: 5,
		LogLevel:     "info",
	}
}

func (s Settings) tick() time.Duration      { return time.Duration(s.TickMs) * time.Millisecond }
func (s Settings) debounce() time.Duration  { return time.Duration(s.DebounceMs) * time.Millisecond }
func (s Settings) staleness() time.Duration { return time.Duration(s.StalenessSec) * time.Second }

func (s Settings) validate() error {
	if s.XPlaneHost == "" {
		return fmt.Errorf("xplaneHost must not be empty")
	}
	if s.XPlanePort <= 0 || s.XPlanePort > 65535 {
		return fmt.Errorf("xplanePort out of range: %d", s.XPlanePort)
	}
	if s.TickMs <= 0 || s.DebounceMs < 0 || s.StalenessSec <= 0 {
		return fmt.Errorf("tickMs, debounceMs and stalenessSec must be positive")
	}
	return nil
}

type SettingsService struct {
	mu       sync.RWMutex
	settings Settings
	filePath string
}

func NewSettingsService() *SettingsService {
	configDir, _ := os.UserConfigDir()
	fp := filepath.Join(configDir, "winwing-bridge", "settings.json")

	s := &SettingsService{
		filePath: fp,
		settings: defaultSettings(),
	}
	s.load()
	return s
}

func (s *SettingsService) GetSettings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *SettingsService) UpdateSettings(settings Settings) error {
	if err := settings.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return s.save()
}

func (s *SettingsService) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return
	}
	json.Unmarshal(data, &s.settings)
}

func (s *SettingsService) save() error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	return os.WriteFile(s.filePath, data, 0o644)
}
