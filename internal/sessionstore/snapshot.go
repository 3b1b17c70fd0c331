package sessionstore

import (
	"time"

	"github.com/cigdist/huoyuan-allocator/internal/allocator"
	"gorm.io/gorm"
)

// SessionSnapshot is the persisted record of one session's upload and
// most recent solve, mirroring session.Snapshot's fields but as a flat
// GORM model.
type SessionSnapshot struct {
	ID             uint      `gorm:"primaryKey"`
	SessionID      string    `gorm:"uniqueIndex;size:64"`
	UploadedAt     time.Time `gorm:"not null"`
	SolvedAt       *time.Time
	SolveStatus    string
	ObjectiveValue *float64
	ProductCount   int
	RoundCount     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (SessionSnapshot) TableName() string {
	return "session_snapshots"
}

// AutoMigrate runs GORM's schema sync, for environments that skip the
// golang-migrate SQL files and want a quick dev-mode bootstrap.
// Production deployments should prefer Migrate (golang-migrate against
// the versioned SQL files).
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&SessionSnapshot{})
}

// SaveUpload records a freshly-uploaded session, upserting on
// session_id so a re-upload under the same ID updates in place.
func (s *Store) SaveUpload(sessionID string, uploadedAt time.Time, productCount, roundCount int) error {
	snap := SessionSnapshot{
		SessionID:    sessionID,
		UploadedAt:   uploadedAt,
		ProductCount: productCount,
		RoundCount:   roundCount,
	}
	return s.db.Where(SessionSnapshot{SessionID: sessionID}).
		Assign(snap).
		FirstOrCreate(&snap).Error
}

// SaveSolve records the outcome of a solve against an already-saved
// session. Callers fire this after Allocate returns and ignore its
// error; the solve path never blocks on persistence.
func (s *Store) SaveSolve(sessionID string, solvedAt time.Time, result *allocator.Result) error {
	objective := result.ObjectiveValue
	return s.db.Model(&SessionSnapshot{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"solved_at":       solvedAt,
			"solve_status":    string(result.Status),
			"objective_value": objective,
		}).Error
}

// Latest returns the most recently uploaded snapshot, if any.
func (s *Store) Latest() (*SessionSnapshot, error) {
	var snap SessionSnapshot
	err := s.db.Order("uploaded_at DESC").First(&snap).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
