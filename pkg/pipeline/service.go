package pipeline

import (
	"context"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/observability/metrics"
	"github.com/sirupsen/logrus"
)

const (
	EventStaged = "pipeline.staged"
	eventSource = "sigmatch-service"
)

// ConfigSource is the slice of the config store staging needs.
type ConfigSource interface {
	Active() (configstore.Configuration, error)
}

// Publisher announces staged runs to downstream consumers.
type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Service renders orchestrator commands. It never executes them.
type Service struct {
	config      ConfigSource
	status      StatusStore
	publisher   Publisher
	interpreter string
	script      string
	now         func() time.Time
}

type Option func(*Service)

func WithStatusStore(store StatusStore) Option {
	return func(s *Service) {
		s.status = store
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithCommand(interpreter, script string) Option {
	return func(s *Service) {
		s.interpreter = interpreter
		s.script = script
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(config ConfigSource, opts ...Option) *Service {
	svc := &Service{
		config:      config,
		status:      NewMemoryStatusStore(),
		interpreter: DefaultInterpreter,
		script:      DefaultScript,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Stage renders the command for req, captures the active configuration and
// records the command as the latest staged run.
func (s *Service) Stage(ctx context.Context, req RunRequest) (models.PipelineRunResponse, error) {
	if req.ConfigPath == "" {
		req.ConfigPath = configstore.ActiveConfigPath
	}
	args := req.Args(s.interpreter, s.script)
	command := req.Command(s.interpreter, s.script)

	configUsed := map[string]string{}
	cfg, err := s.config.Active()
	if err != nil {
		logger.Log.WithError(err).Warn("could not read active config for pipeline run")
		configUsed["error"] = "Could not read config file"
	} else {
		configUsed = cfg.Fields()
	}

	current, err := s.status.Get(ctx)
	if err != nil {
		return models.PipelineRunResponse{}, err
	}
	staged := s.now().UTC()
	current.Status = StatusStaged
	current.LastStaged = &staged
	current.LastCommand = command
	if err := s.status.Put(ctx, current); err != nil {
		return models.PipelineRunResponse{}, err
	}

	metrics.ObservePipelineStaged()
	logger.WithFields(logrus.Fields{
		"command":     command,
		"config_path": req.ConfigPath,
		"cohort_name": configUsed[configstore.KeyCohortName],
	}).Info("pipeline command staged")

	if s.publisher != nil {
		data := map[string]interface{}{
			"command":     command,
			"args":        args,
			"config_path": req.ConfigPath,
			"cohort_name": configUsed[configstore.KeyCohortName],
		}
		if err := s.publisher.PublishEvent(ctx, EventStaged, eventSource, data); err != nil {
			logger.Log.WithError(err).Warn("failed to publish pipeline staged event")
		}
	}

	return models.PipelineRunResponse{Command: command, Args: args, ConfigUsed: configUsed}, nil
}

func (s *Service) Status(ctx context.Context) (models.PipelineStatus, error) {
	status, err := s.status.Get(ctx)
	if err != nil {
		return models.PipelineStatus{}, err
	}
	if status.Status == "" {
		status.Status = StatusIdle
	}
	return status, nil
}
