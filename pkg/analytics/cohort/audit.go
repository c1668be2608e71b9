package cohort

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/AUW160150/Sigmatch/pkg/common/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type assemblyModel struct {
	ID            uuid.UUID      `gorm:"primaryKey;column:id"`
	CohortSource  string         `gorm:"column:cohort_source;index"`
	Criteria      datatypes.JSON `gorm:"column:criteria"`
	MaxPatients   int            `gorm:"column:max_patients"`
	TotalSearched int            `gorm:"column:total_searched"`
	MatchedCount  int            `gorm:"column:matched_count"`
	PatientIDs    datatypes.JSON `gorm:"column:patient_ids"`
	CreatedAt     time.Time      `gorm:"column:created_at"`
}

func (assemblyModel) TableName() string {
	return "cohort_assemblies"
}

// AuditRepository keeps a Postgres trail of cohort assemblies.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&assemblyModel{})
}

func (r *AuditRepository) Record(ctx context.Context, run models.AssemblyRun) error {
	criteria, err := json.Marshal(run.Criteria)
	if err != nil {
		return err
	}
	ids, err := json.Marshal(run.PatientIDs)
	if err != nil {
		return err
	}
	model := &assemblyModel{
		ID:            run.ID,
		CohortSource:  run.CohortSource,
		Criteria:      datatypes.JSON(criteria),
		MaxPatients:   run.MaxPatients,
		TotalSearched: run.TotalSearched,
		MatchedCount:  run.MatchedCount,
		PatientIDs:    datatypes.JSON(ids),
		CreatedAt:     run.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// List returns the newest runs first, optionally restricted to one corpus.
func (r *AuditRepository) List(ctx context.Context, cohortSource string, limit int) ([]models.AssemblyRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if cohortSource != "" {
		query = query.Where("cohort_source = ?", cohortSource)
	}
	var records []assemblyModel
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	runs := make([]models.AssemblyRun, 0, len(records))
	for i := range records {
		runs = append(runs, assemblyToDomain(&records[i]))
	}
	return runs, nil
}

// assemblyToDomain keeps a run whose JSON columns do not decode, leaving the
// affected lists empty.
func assemblyToDomain(model *assemblyModel) models.AssemblyRun {
	run := models.AssemblyRun{
		ID:            model.ID,
		CohortSource:  model.CohortSource,
		MaxPatients:   model.MaxPatients,
		TotalSearched: model.TotalSearched,
		MatchedCount:  model.MatchedCount,
		CreatedAt:     model.CreatedAt,
	}
	decodeColumn(model, "criteria", model.Criteria, &run.Criteria)
	decodeColumn(model, "patient_ids", model.PatientIDs, &run.PatientIDs)
	return run
}

func decodeColumn(model *assemblyModel, column string, raw datatypes.JSON, dst *[]string) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		*dst = nil
		logger.WithFields(logrus.Fields{
			"assembly_id": model.ID,
			"column":      column,
		}).WithError(err).Warn("undecodable cohort assembly column")
	}
}
