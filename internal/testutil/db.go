// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"nsi_edu_backend/internal/model"
	"nsi_edu_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewTestDB opens a private in-memory SQLite database with every table migrated.
// It uses a single connection, so code under test must route all queries of a
// transaction through the transaction handle.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:nsitest_%d?mode=memory&cache=shared", dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateStudent inserts an active student together with its progress account.
func CreateStudent(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		Name:     name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@lycee.example.fr",
		Role:     model.Student,
		IsActive: true,
	}
	require.NoError(t, db.Omit("Progress", "Streak").Create(user).Error)
	require.NoError(t, db.Create(model.NewProgressAccount(user.ID)).Error)
	return user
}

func CreateExercise(t *testing.T, db *gorm.DB, title string, xpReward int) *model.Exercise {
	t.Helper()
	exercise := &model.Exercise{
		Title:       title,
		Type:        model.ExercisePython,
		XPReward:    xpReward,
		IsPublished: true,
	}
	require.NoError(t, db.Create(exercise).Error)
	return exercise
}

func CreateHint(t *testing.T, db *gorm.DB, exerciseID uint, content string, xpCost int) *model.Hint {
	t.Helper()
	hint := &model.Hint{ExerciseID: exerciseID, Content: content, XPCost: xpCost}
	require.NoError(t, db.Create(hint).Error)
	return hint
}

// SetXP overwrites a user's XP; level follows through the save hook.
func SetXP(t *testing.T, db *gorm.DB, userID uint, xp int) {
	t.Helper()
	var account model.ProgressAccount
	require.NoError(t, db.Where("user_id = ?", userID).First(&account).Error)
	account.XP = xp
	require.NoError(t, db.Save(&account).Error)
}

func GetAccount(t *testing.T, db *gorm.DB, userID uint) *model.ProgressAccount {
	t.Helper()
	var account model.ProgressAccount
	require.NoError(t, db.Where("user_id = ?", userID).First(&account).Error)
	return &account
}
