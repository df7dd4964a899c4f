package database

import (
	"path/filepath"
	"testing"

	"github.com/BinLe1988/payday-server/configs"
	"github.com/BinLe1988/payday-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(configs.Database{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "payday.db"),
	})
	require.NoError(t, err)
	defer Close(db, zap.NewNop())

	require.NoError(t, Migrate(db))

	post := models.Post{UserID: "u1", AnonymousName: "打工人", Content: "hello"}
	require.NoError(t, db.Create(&post).Error)
	assert.NotEmpty(t, post.ID)

	var loaded models.Post
	require.NoError(t, db.First(&loaded, "id = ?", post.ID).Error)
	assert.Equal(t, models.RiskPending, loaded.RiskStatus)
	assert.Nil(t, loaded.RiskScore)

	var record models.SalaryRecord
	record.UserID = "u1"
	record.AmountEncrypted = "x"
	record.Mood = models.MoodHappy
	require.NoError(t, db.Omit("EncryptionSalt").Create(&record).Error)
	require.NoError(t, db.First(&record, "id = ?", record.ID).Error)
	assert.Equal(t, "legacy", record.EncryptionSalt)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(configs.Database{Driver: "oracle"})
	assert.Error(t, err)
}
