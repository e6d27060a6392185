package question

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Moatez-69/quiznet-tcp-udp/internal/core"
)

// Record is the database representation of one bank question. The options
// are flat columns since every question has exactly four.
type Record struct {
	ID      int    `gorm:"primaryKey"`
	Text    string `gorm:"unique; not null"`
	Option1 string `gorm:"not null"`
	Option2 string `gorm:"not null"`
	Option3 string `gorm:"not null"`
	Option4 string `gorm:"not null"`
	Correct int    `gorm:"not null"`
}

func (r Record) toQuestion() Question {
	return Question{
		ID:      r.ID,
		Text:    r.Text,
		Options: []string{r.Option1, r.Option2, r.Option3, r.Option4},
		Correct: r.Correct,
	}
}

func recordFrom(q Question) Record {
	return Record{
		ID:      q.ID,
		Text:    q.Text,
		Option1: q.Options[0],
		Option2: q.Options[1],
		Option3: q.Options[2],
		Option4: q.Options[3],
		Correct: q.Correct,
	}
}

// Open connects to the question database selected by the config and runs
// any pending migrations.
func Open(cfg *core.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Database.Engine) {
	case "sqlite":
		dialector = sqlite.Open(cfg.QualifiedPath(cfg.Database.Filename))
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL())
	default:
		return nil, fmt.Errorf("unsupported database engine: %s", cfg.Database.Engine)
	}

	// By default only log errors but enable full SQL query prints with the
	// database logging debug option.
	logMode := gormlogger.Default.LogMode(gormlogger.Error)
	if cfg.Debugging.DatabaseLoggingEnabled {
		logMode = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logMode})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("error migrating question table: %w", err)
	}

	return db, nil
}

// Close releases the underlying database connection.
func Close(db *gorm.DB) error {
	database, err := db.DB()
	if err != nil {
		return fmt.Errorf("error while getting current connection: %w", err)
	}
	if err := database.Close(); err != nil {
		return fmt.Errorf("error while closing database connection: %w", err)
	}
	return nil
}

// AllQuestions returns every question in the bank ordered by id.
func AllQuestions(db *gorm.DB) ([]Question, error) {
	var records []Record
	if err := db.Order("id").Find(&records).Error; err != nil {
		return nil, err
	}

	questions := make([]Question, 0, len(records))
	for _, r := range records {
		questions = append(questions, r.toQuestion())
	}
	return questions, nil
}

// FindQuestionByID returns the matching question, or nil if there is no
// match.
func FindQuestionByID(db *gorm.DB, id int) (*Question, error) {
	var record Record
	err := db.First(&record, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	q := record.toQuestion()
	return &q, nil
}

// CreateQuestion persists q, letting the database assign q.ID when it is
// zero.
func CreateQuestion(db *gorm.DB, q *Question) error {
	if err := q.Validate(); err != nil {
		return err
	}

	record := recordFrom(*q)
	if err := db.Create(&record).Error; err != nil {
		return err
	}
	q.ID = record.ID
	return nil
}

// DeleteQuestion removes the question with the given id, reporting whether
// anything was deleted.
func DeleteQuestion(db *gorm.DB, id int) (bool, error) {
	result := db.Delete(&Record{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountQuestions reports the bank size.
func CountQuestions(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&Record{}).Count(&count).Error
	return count, err
}

// ImportQuestions inserts qs, skipping entries whose text already exists in
// the bank. It returns how many were imported and how many were skipped.
func ImportQuestions(db *gorm.DB, qs []Question) (int, int, error) {
	imported, skipped := 0, 0
	for _, q := range qs {
		var count int64
		if err := db.Model(&Record{}).Where("text = ?", q.Text).Count(&count).Error; err != nil {
			return imported, skipped, err
		}
		if count > 0 {
			skipped++
			continue
		}

		record := recordFrom(q)
		// Imports never carry file-assigned ids over so that appending to
		// an existing bank cannot collide.
		record.ID = 0
		if err := db.Create(&record).Error; err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}
