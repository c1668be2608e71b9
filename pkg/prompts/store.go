package prompts

import (
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/paths"
	"github.com/AUW160150/Sigmatch/pkg/storage"
)

const (
	SettingsDir     = "config_files/prompt_settings"
	SettingsFile    = "sigmatch_standard_prompt_content.json"
	SettingsPath    = SettingsDir + "/" + SettingsFile
	VersionBaseName = "sigmatch_standard_prompt_content"
	VersionTag      = "backup"
)

var ErrAgentNotFound = errors.New("agent not found")

type AgentPrompt struct {
	SystemPrompt *string `json:"system_prompt,omitempty"`
	MainPrompt   string  `json:"main_prompt"`
	Skip         bool    `json:"skip"`
}

// AgentUpdate changes only the fields that are non-nil.
type AgentUpdate struct {
	SystemPrompt *string `json:"system_prompt"`
	MainPrompt   *string `json:"main_prompt"`
	Skip         *bool   `json:"skip"`
}

type Settings map[string]AgentPrompt

type Store struct {
	files *storage.FileStore
	now   func() time.Time
	mu    sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(files *storage.FileStore, opts ...Option) *Store {
	s := &Store{files: files, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// All returns the prompt settings. Missing settings are created from Defaults
// and missing required agents are restored and persisted before returning.
func (s *Store) All() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, _, err := s.loadRepaired()
	return settings, err
}

// Repair restores missing required agents and reports whether it wrote.
func (s *Store) Repair() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, repaired, err := s.loadRepaired()
	return repaired, err
}

func (s *Store) Agent(name string) (AgentPrompt, error) {
	settings, err := s.All()
	if err != nil {
		return AgentPrompt{}, err
	}
	prompt, ok := settings[name]
	if !ok {
		return AgentPrompt{}, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return prompt, nil
}

// UpdateAgent never creates agents; unknown names yield ErrAgentNotFound.
func (s *Store) UpdateAgent(name string, update AgentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, _, err := s.loadRepaired()
	if err != nil {
		return err
	}
	prompt, ok := settings[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	if update.SystemPrompt != nil {
		prompt.SystemPrompt = optional(*update.SystemPrompt)
	}
	if update.MainPrompt != nil {
		prompt.MainPrompt = *update.MainPrompt
	}
	if update.Skip != nil {
		prompt.Skip = *update.Skip
	}
	settings[name] = prompt
	if err := s.files.WriteJSON(SettingsPath, settings); err != nil {
		return err
	}
	logger.WithField("agent", name).Info("agent prompt updated")
	return nil
}

// Replace swaps the whole mapping. Required agents absent from settings are
// filled in from Defaults.
func (s *Store) Replace(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(Settings, len(settings))
	for name, prompt := range settings {
		next[name] = prompt
	}
	fillRequired(next)
	return s.files.WriteJSON(SettingsPath, next)
}

// SaveVersioned snapshots the current mapping without touching it.
func (s *Store) SaveVersioned() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, _, err := s.loadRepaired()
	if err != nil {
		return "", err
	}
	ts := s.now()
	name := paths.VersionedFilename(VersionBaseName, VersionTag, ts)
	for s.files.Exists(path.Join(SettingsDir, name)) {
		ts = ts.Add(time.Second)
		name = paths.VersionedFilename(VersionBaseName, VersionTag, ts)
	}
	if err := s.files.WriteJSON(path.Join(SettingsDir, name), settings); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Store) ModifiedTime() time.Time {
	if modified, ok := s.files.ModifiedTime(SettingsPath); ok {
		return modified
	}
	return s.now()
}

func (s *Store) loadRepaired() (Settings, bool, error) {
	if !s.files.Exists(SettingsPath) {
		settings := Defaults()
		if err := s.files.WriteJSON(SettingsPath, settings); err != nil {
			return nil, false, err
		}
		logger.Log.Info("created default prompt settings")
		return settings, true, nil
	}

	var settings Settings
	if err := s.files.ReadJSON(SettingsPath, &settings); err != nil {
		return nil, false, err
	}
	if settings == nil {
		settings = Settings{}
	}
	added := fillRequired(settings)
	if len(added) == 0 {
		return settings, false, nil
	}
	if err := s.files.WriteJSON(SettingsPath, settings); err != nil {
		return nil, false, err
	}
	logger.WithField("agents", added).Warn("restored missing required agents")
	return settings, true, nil
}

func fillRequired(settings Settings) []string {
	defaults := Defaults()
	var added []string
	for _, name := range RequiredAgents() {
		if _, ok := settings[name]; !ok {
			settings[name] = defaults[name]
			added = append(added, name)
		}
	}
	return added
}
