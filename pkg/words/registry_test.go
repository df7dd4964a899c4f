package words_test

import (
	"context"
	"testing"

	"github.com/BinLe1988/payday-server/internal/testdb"
	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/risk"
	"github.com/BinLe1988/payday-server/pkg/words"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCRUD(t *testing.T) {
	ctx := context.Background()
	reg := words.NewRegistry(testdb.New(t), nil)

	w, err := reg.Create(ctx, " 赌博 ", models.WordCategoryIllegal)
	require.NoError(t, err)
	assert.Equal(t, "赌博", w.Word)
	assert.True(t, w.IsActive)

	_, err = reg.Create(ctx, "赌博", models.WordCategoryOther)
	assert.ErrorIs(t, err, words.ErrDuplicateWord)

	_, err = reg.Create(ctx, "  ", models.WordCategoryOther)
	assert.ErrorIs(t, err, words.ErrEmptyWord)

	other, err := reg.Create(ctx, "色情", models.WordCategoryPorn)
	require.NoError(t, err)

	// 改成已存在的词
	dup := "赌博"
	_, err = reg.Update(ctx, other.ID, models.SensitiveWordUpdate{Word: &dup})
	assert.ErrorIs(t, err, words.ErrDuplicateWord)

	inactive := false
	category := models.WordCategoryOther
	updated, err := reg.Update(ctx, other.ID, models.SensitiveWordUpdate{IsActive: &inactive, Category: &category})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, models.WordCategoryOther, updated.Category)

	active, err := reg.ActiveWords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"赌博"}, active)

	require.NoError(t, reg.Delete(ctx, w.ID))
	assert.ErrorIs(t, reg.Delete(ctx, w.ID), words.ErrWordNotFound)

	_, err = reg.Get(ctx, w.ID)
	assert.ErrorIs(t, err, words.ErrWordNotFound)

	active, err = reg.ActiveWords(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRegistryListAndGroup(t *testing.T) {
	ctx := context.Background()
	reg := words.NewRegistry(testdb.New(t), nil)

	for word, category := range map[string]string{
		"毒品": models.WordCategoryIllegal,
		"赌场": models.WordCategoryIllegal,
		"裸聊": models.WordCategoryPorn,
		"套现": models.WordCategoryFraud,
	} {
		_, err := reg.Create(ctx, word, category)
		require.NoError(t, err)
	}

	illegal, err := reg.List(ctx, words.Filter{Category: models.WordCategoryIllegal})
	require.NoError(t, err)
	assert.Len(t, illegal, 2)

	all, err := reg.List(ctx, words.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	off := false
	for _, w := range all {
		if w.Word == "套现" {
			_, err := reg.Update(ctx, w.ID, models.SensitiveWordUpdate{IsActive: &off})
			require.NoError(t, err)
		}
	}

	grouped, err := reg.ActiveByCategory(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"毒品", "赌场"}, grouped[models.WordCategoryIllegal])
	assert.Equal(t, []string{"裸聊"}, grouped[models.WordCategoryPorn])
	assert.NotContains(t, grouped, models.WordCategoryFraud)

	inactive, err := reg.List(ctx, words.Filter{IsActive: &off})
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "套现", inactive[0].Word)
}

func TestRegistrySeedSkipsExisting(t *testing.T) {
	ctx := context.Background()
	reg := words.NewRegistry(testdb.New(t), nil)

	_, err := reg.Create(ctx, "VPN", models.WordCategoryOther)
	require.NoError(t, err)

	n, err := reg.Seed(ctx, []words.Seed{
		{Word: "VPN"},
		{Word: "翻墙"},
		{Word: "翻墙"},
		{Word: ""},
		{Word: "传销", Category: models.WordCategoryFraud},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := reg.List(ctx, words.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// 管理员修改词库后，下一次评估立即生效
func TestRegistryFeedsEngineLive(t *testing.T) {
	ctx := context.Background()
	reg := words.NewRegistry(testdb.New(t), nil)
	engine := risk.NewEngine(reg, nil)

	res, err := engine.Evaluate(ctx, "这里有人搞传销", nil)
	require.NoError(t, err)
	assert.Equal(t, risk.ActionApprove, res.Action)

	_, err = reg.Create(ctx, "传销", models.WordCategoryFraud)
	require.NoError(t, err)

	res, err = engine.Evaluate(ctx, "这里有人搞传销", nil)
	require.NoError(t, err)
	assert.Equal(t, 90, res.Score)
	assert.Equal(t, risk.ActionReject, res.Action)
}
