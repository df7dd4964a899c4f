package words_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BinLe1988/payday-server/internal/testdb"
	"github.com/BinLe1988/payday-server/pkg/words"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeeds(t *testing.T) {
	seeds, err := words.ParseSeeds([]byte("porn:\n  - 裸聊\nfraud:\n  - 传销\n  - 套现\n"))
	require.NoError(t, err)
	assert.Equal(t, []words.Seed{
		{Word: "传销", Category: "fraud"},
		{Word: "套现", Category: "fraud"},
		{Word: "裸聊", Category: "porn"},
	}, seeds)

	_, err = words.ParseSeeds([]byte("- not\n- a map\n"))
	assert.Error(t, err)
}

func TestLoadSeedFileIntoRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.yaml")
	require.NoError(t, os.WriteFile(path, []byte("illegal:\n  - 赌博\n  - 毒品\nother:\n  - VPN\n"), 0o600))

	seeds, err := words.LoadSeedFile(path)
	require.NoError(t, err)

	reg := words.NewRegistry(testdb.New(t), nil)
	n, err := reg.Seed(context.Background(), seeds)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = words.LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBundledSeedFileParses(t *testing.T) {
	seeds, err := words.LoadSeedFile("../../configs/sensitive_words.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, seeds)
}
