package store

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func Init(path string) (*gorm.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Single connection keeps every store operation a single critical
	// section against the file.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Message{}, &Alert{}); err != nil {
		return nil, err
	}
	return db, nil
}

// InsertIfAbsent is the dedup gate for the whole relay protocol: it creates
// the record on first sighting of msg.ID and reports true, or leaves an
// existing record untouched and reports false.
func InsertIfAbsent(db *gorm.DB, msg *Message) (bool, error) {
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(msg)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkAcknowledged is idempotent and a no-op for unknown ids.
func MarkAcknowledged(db *gorm.DB, id string) error {
	return db.Model(&Message{}).Where("id = ?", id).
		Update("acknowledged", true).Error
}

// MarkForwarded records that the upstream forwarding step has happened.
// Distinct from LAN relay.
func MarkForwarded(db *gorm.DB, id string) error {
	return db.Model(&Message{}).Where("id = ?", id).
		Update("forwarded", true).Error
}

func IncrementResend(db *gorm.DB, id string) error {
	return db.Model(&Message{}).Where("id = ?", id).
		Update("resend_count", gorm.Expr("resend_count + 1")).Error
}

func GetMessage(db *gorm.DB, id string) (Message, error) {
	var msg Message
	err := db.First(&msg, "id = ?", id).Error
	return msg, err
}

func ListMessages(db *gorm.DB, limit int) ([]Message, error) {
	var messages []Message
	result := db.Order("received_at desc").Limit(limit).Find(&messages)
	return messages, result.Error
}

// ListPending returns the forwarding/resend candidate set: everything not
// yet forwarded upstream, plus SOS traffic still awaiting acknowledgement.
func ListPending(db *gorm.DB) ([]Message, error) {
	var messages []Message
	result := db.
		Where("forwarded = ? OR (kind = ? AND acknowledged = ?)", false, KindSOS, false).
		Order("received_at asc").
		Find(&messages)
	return messages, result.Error
}

// ListUnacknowledgedSOS returns unacked SOS messages originated by this
// node, oldest first. The resend scheduler only ever resends its own
// traffic.
func ListUnacknowledgedSOS(db *gorm.DB, originID string) ([]Message, error) {
	var messages []Message
	result := db.
		Where("kind = ? AND acknowledged = ? AND ttl > 0 AND origin_id = ?",
			KindSOS, false, originID).
		Order("received_at asc").
		Find(&messages)
	return messages, result.Error
}

// PurgeOlderThan removes messages received before now-age. Retention only;
// the relay protocol itself never deletes.
func PurgeOlderThan(db *gorm.DB, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	res := db.Where("received_at < ?", cutoff).Delete(&Message{})
	return res.RowsAffected, res.Error
}

func UpsertAlert(db *gorm.DB, alert Alert) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&alert).Error
}

func ListAlerts(db *gorm.DB, limit int) ([]Alert, error) {
	var alerts []Alert
	result := db.Order("fetched_at desc").Limit(limit).Find(&alerts)
	return alerts, result.Error
}
