package incidentstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PerpetratorIncident struct {
	ID         uint   `gorm:"primarykey"`
	ActorID    string `gorm:"index;not null"`
	ActorName  string
	VictimName string
	Severity   int
	ReportedAt time.Time `gorm:"index"`
}

func (PerpetratorIncident) TableName() string {
	return "perpetrator_incidents"
}

type VictimMentionRow struct {
	ID         uint   `gorm:"primarykey"`
	VictimKey  string `gorm:"index;not null"`
	VictimName string
	ActorID    string
	ActorName  string
	ReportedAt time.Time `gorm:"index"`
}

func (VictimMentionRow) TableName() string {
	return "victim_mentions"
}

type Rationale struct {
	AuditID   int64 `gorm:"primarykey;autoIncrement:false"`
	Text      string
	CreatedAt time.Time
}

func (Rationale) TableName() string {
	return "rationales"
}

// SQL-backed incident store (sqlite or postgres, via gorm).
type GormIncidentStore struct {
	db *gorm.DB
}

var _ IncidentStore = (*GormIncidentStore)(nil)
var _ RationaleStore = (*GormIncidentStore)(nil)

func NewGormIncidentStore(db *gorm.DB) (*GormIncidentStore, error) {
	if err := db.AutoMigrate(&PerpetratorIncident{}, &VictimMentionRow{}, &Rationale{}); err != nil {
		return nil, err
	}
	return &GormIncidentStore{db: db}, nil
}

func (s *GormIncidentStore) AddIncident(ctx context.Context, inc Incident) error {
	row := PerpetratorIncident{
		ActorID:    inc.ActorID,
		ActorName:  inc.ActorName,
		VictimName: inc.VictimName,
		Severity:   inc.Severity,
		ReportedAt: inc.Timestamp.UTC(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormIncidentStore) AddVictimMention(ctx context.Context, vm VictimMention) error {
	row := VictimMentionRow{
		VictimKey:  NormalizeName(vm.VictimName),
		VictimName: vm.VictimName,
		ActorID:    vm.ActorID,
		ActorName:  vm.ActorName,
		ReportedAt: vm.Timestamp.UTC(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormIncidentStore) ListIncidents(ctx context.Context, actorID string) ([]Incident, error) {
	var rows []PerpetratorIncident
	if err := s.db.WithContext(ctx).Where("actor_id = ?", actorID).Order("reported_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Incident, 0, len(rows))
	for _, r := range rows {
		out = append(out, Incident{
			ActorID:    r.ActorID,
			ActorName:  r.ActorName,
			VictimName: r.VictimName,
			Severity:   r.Severity,
			Timestamp:  r.ReportedAt,
		})
	}
	return out, nil
}

func (s *GormIncidentStore) ListVictimMentions(ctx context.Context, victimName string) ([]VictimMention, error) {
	var rows []VictimMentionRow
	if err := s.db.WithContext(ctx).Where("victim_key = ?", NormalizeName(victimName)).Order("reported_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]VictimMention, 0, len(rows))
	for _, r := range rows {
		out = append(out, VictimMention{
			VictimName: r.VictimName,
			ActorID:    r.ActorID,
			ActorName:  r.ActorName,
			Timestamp:  r.ReportedAt,
		})
	}
	return out, nil
}

func (s *GormIncidentStore) SaveRationale(ctx context.Context, auditID int64, rationale string) error {
	row := Rationale{AuditID: auditID, Text: rationale}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "audit_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text"}),
	}).Create(&row).Error
}

func (s *GormIncidentStore) GetRationale(ctx context.Context, auditID int64) (string, bool, error) {
	var rows []Rationale
	if err := s.db.WithContext(ctx).Where("audit_id = ?", auditID).Limit(1).Find(&rows).Error; err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Text, true, nil
}
