package bootstrap

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/analytics/cohort"
	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/configstore"
	"github.com/AUW160150/Sigmatch/pkg/prompts"
	"github.com/AUW160150/Sigmatch/pkg/storage"
	"github.com/AUW160150/Sigmatch/pkg/trials"
	"github.com/sirupsen/logrus"
)

// SeedCorpora are generated on first start so assembly has data to work on.
var SeedCorpora = []string{"dummy_cohort1.json", "dummy_cohort2.json"}

// Report lists what a run changed.
type Report struct {
	ConfigRepaired bool     `json:"config_repaired"`
	PromptsHealed  bool     `json:"prompts_healed"`
	SeededCorpora  []string `json:"seeded_corpora"`
	SeededTrial    bool     `json:"seeded_trial"`
}

type Initializer struct {
	files   *storage.FileStore
	config  *configstore.Store
	prompts *prompts.Store
	corpus  *cohort.FileCorpus
	trials  *trials.Service
	rng     *rand.Rand
}

type Option func(*Initializer)

func WithRand(rng *rand.Rand) Option {
	return func(i *Initializer) {
		i.rng = rng
	}
}

func New(files *storage.FileStore, config *configstore.Store, promptStore *prompts.Store, corpus *cohort.FileCorpus, trialService *trials.Service, opts ...Option) *Initializer {
	i := &Initializer{
		files:   files,
		config:  config,
		prompts: promptStore,
		corpus:  corpus,
		trials:  trialService,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	if i.rng == nil {
		i.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return i
}

// Run prepares the data directory. It is idempotent: a second run on a
// healthy tree changes nothing.
func (i *Initializer) Run() (Report, error) {
	var report Report

	if err := i.files.EnsureBaseDirectories(); err != nil {
		return report, fmt.Errorf("creating base directories: %w", err)
	}

	repaired, err := i.config.Repair()
	if err != nil {
		return report, fmt.Errorf("repairing active config: %w", err)
	}
	report.ConfigRepaired = repaired

	healed, err := i.prompts.Repair()
	if err != nil {
		return report, fmt.Errorf("repairing prompt settings: %w", err)
	}
	report.PromptsHealed = healed

	report.SeededCorpora = []string{}
	for _, name := range SeedCorpora {
		if i.corpus.Exists(name) {
			continue
		}
		patients := cohort.GenerateSynthetic(cohort.DefaultSyntheticPatients, i.rng)
		if err := i.corpus.Save(name, patients); err != nil {
			return report, fmt.Errorf("seeding corpus %s: %w", name, err)
		}
		report.SeededCorpora = append(report.SeededCorpora, name)
	}

	seeded, err := i.trials.EnsureDefault()
	if err != nil {
		return report, fmt.Errorf("seeding default trial: %w", err)
	}
	report.SeededTrial = seeded

	logger.WithFields(logrus.Fields{
		"data_dir":        i.files.Root(),
		"config_repaired": report.ConfigRepaired,
		"prompts_healed":  report.PromptsHealed,
		"seeded_corpora":  report.SeededCorpora,
		"seeded_trial":    report.SeededTrial,
	}).Info("data directory initialized")
	return report, nil
}
