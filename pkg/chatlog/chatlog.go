package chatlog

import (
	"sync"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const LogPath = "config_files/overall_config_settings/evaluation_criteria.json"

// History is the persisted evaluation conversation.
type History struct {
	Messages      []models.ChatMessage `json:"messages"`
	FinalCriteria *string              `json:"final_criteria"`
	CreatedAt     *time.Time           `json:"created_at,omitempty"`
	UpdatedAt     *time.Time           `json:"updated_at,omitempty"`
}

type Log struct {
	files *storage.FileStore
	now   func() time.Time
	mu    sync.Mutex
}

type Option func(*Log)

func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

func New(files *storage.FileStore, opts ...Option) *Log {
	l := &Log{files: files, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// History returns the persisted log or an empty one when nothing was saved.
func (l *Log) History() (History, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Append stores a message with any role verbatim and returns it.
func (l *Log) Append(role, content string) (models.ChatMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.load()
	if err != nil {
		return models.ChatMessage{}, err
	}
	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: l.now().UTC(),
	}
	history.Messages = append(history.Messages, msg)
	if err := l.save(history); err != nil {
		return models.ChatMessage{}, err
	}
	logger.WithFields(logrus.Fields{
		"role":     role,
		"messages": len(history.Messages),
	}).Debug("chat message appended")
	return msg, nil
}

// SetFinalCriteria replaces the final criteria and leaves messages alone.
func (l *Log) SetFinalCriteria(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	history, err := l.load()
	if err != nil {
		return err
	}
	history.FinalCriteria = &text
	if err := l.save(history); err != nil {
		return err
	}
	logger.Log.Info("final evaluation criteria saved")
	return nil
}

func (l *Log) load() (History, error) {
	if !l.files.Exists(LogPath) {
		return History{Messages: []models.ChatMessage{}}, nil
	}
	var history History
	if err := l.files.ReadJSON(LogPath, &history); err != nil {
		return History{}, err
	}
	if history.Messages == nil {
		history.Messages = []models.ChatMessage{}
	}
	return history, nil
}

func (l *Log) save(history History) error {
	now := l.now().UTC()
	if history.CreatedAt == nil {
		history.CreatedAt = &now
	}
	history.UpdatedAt = &now
	return l.files.WriteJSON(LogPath, history)
}
