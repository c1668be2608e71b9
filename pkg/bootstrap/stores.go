package bootstrap

import (
	"github.com/AUW160150/Sigmatch/pkg/analytics/cohort"
	"github.com/AUW160150/Sigmatch/pkg/chatlog"
	"github.com/AUW160150/Sigmatch/pkg/common/config"
	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/prompts"
	"github.com/AUW160150/Sigmatch/pkg/results"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/AUW160150/Sigmatch/pkg/trials"
)

// Stores are the file-backed components shared by the service and the CLI.
type Stores struct {
	Files   *storage.FileStore
	Config  *configstore.Store
	Prompts *prompts.Store
	Corpus  *cohort.FileCorpus
	Trials  *trials.Service
	Chat    *chatlog.Log
	Results *results.Reader
}

func Open(cfg *config.Config) *Stores {
	files := storage.NewFileStore(cfg.DataDir)
	configStore := configstore.NewStore(files)
	return &Stores{
		Files:   files,
		Config:  configStore,
		Prompts: prompts.NewStore(files),
		Corpus:  cohort.NewFileCorpus(files, cfg.CorpusCacheTTL),
		Trials:  trials.NewService(files),
		Chat:    chatlog.New(files),
		Results: results.NewReader(files, configStore),
	}
}

// Initializer returns the startup sequence over these stores.
func (s *Stores) Initializer(opts ...Option) *Initializer {
	return New(s.Files, s.Config, s.Prompts, s.Corpus, s.Trials, opts...)
}
