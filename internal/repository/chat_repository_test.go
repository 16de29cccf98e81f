package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"spark-chat-go/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Chat{},
		&model.Turn{},
		&model.ChatIndex{},
		&model.ChatSummary{},
	))
	return db
}

func TestCreateChat(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	chat, err := repo.CreateChat(ctx, "owner-1", "Explain TCP", "Explain TCP")
	require.NoError(t, err)
	require.NotEmpty(t, chat.ID)

	got, err := repo.GetChat(ctx, chat.ID, "owner-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.History, 1)
	assert.Equal(t, model.RoleUser, got.History[0].Role)
	assert.Equal(t, "Explain TCP", got.History[0].Text)

	summaries, err := repo.ListSummaries(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, chat.ID, summaries[0].ChatID)
	assert.Equal(t, "Explain TCP", summaries[0].Title)
}

func TestCreateChatReturnsFirstTurn(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))

	chat, err := repo.CreateChat(context.Background(), "owner-1", "hello", "hello")
	require.NoError(t, err)
	require.Len(t, chat.History, 1)
	assert.NotZero(t, chat.History[0].ID)
	assert.Equal(t, chat.ID, chat.History[0].ChatID)
}

func TestCreateChatSharesOneIndexPerOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	first, err := repo.CreateChat(ctx, "owner-1", "first question", "first question")
	require.NoError(t, err)
	second, err := repo.CreateChat(ctx, "owner-1", "second question", "second question")
	require.NoError(t, err)

	var indexCount int64
	require.NoError(t, db.Model(&model.ChatIndex{}).Where("owner_id = ?", "owner-1").Count(&indexCount).Error)
	assert.Equal(t, int64(1), indexCount)

	summaries, err := repo.ListSummaries(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	// 目录保持创建顺序
	assert.Equal(t, first.ID, summaries[0].ChatID)
	assert.Equal(t, second.ID, summaries[1].ChatID)
}

func TestCreateChatConcurrentFirstCreates(t *testing.T) {
	db := newTestDB(t)
	// 内存库只开一个连接，写事务在连接层排队而不是互相打断
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewChatRepository(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			text := fmt.Sprintf("question %d", i)
			_, errs[i] = repo.CreateChat(ctx, "owner-1", text, text)
		}(i)
	}
	close(start)
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// 两个同时的首次创建只允许产生一条目录索引
	var indexCount int64
	require.NoError(t, db.Model(&model.ChatIndex{}).Where("owner_id = ?", "owner-1").Count(&indexCount).Error)
	assert.Equal(t, int64(1), indexCount)

	summaries, err := repo.ListSummaries(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

// 连续两次快速追加必须都命中：命中数表示匹配行数，
// 不受 updated_at 是否真的发生变化影响。
func TestAppendTurnsBackToBackBothMatch(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	chat, err := repo.CreateChat(ctx, "owner-1", "Explain TCP", "Explain TCP")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		matched, modified, err := repo.AppendTurns(ctx, chat.ID, "owner-1", []model.Turn{
			{Role: model.RoleModel, Text: fmt.Sprintf("answer %d", i)},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)
		assert.Equal(t, int64(1), modified)
	}

	got, err := repo.GetChat(ctx, chat.ID, "owner-1")
	require.NoError(t, err)
	require.Len(t, got.History, 3)
	assert.Equal(t, "answer 0", got.History[1].Text)
	assert.Equal(t, "answer 1", got.History[2].Text)
}

func TestAppendTurnsGrowsHistoryInOrder(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	chat, err := repo.CreateChat(ctx, "owner-1", "Explain TCP", "Explain TCP")
	require.NoError(t, err)

	matched, modified, err := repo.AppendTurns(ctx, chat.ID, "owner-1", []model.Turn{
		{Role: model.RoleUser, Text: "Q"},
		{Role: model.RoleModel, Text: "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)
	assert.Equal(t, int64(1), modified)

	got, err := repo.GetChat(ctx, chat.ID, "owner-1")
	require.NoError(t, err)
	require.Len(t, got.History, 3)
	assert.Equal(t, model.RoleUser, got.History[1].Role)
	assert.Equal(t, "Q", got.History[1].Text)
	assert.Equal(t, model.RoleModel, got.History[2].Role)
	assert.Equal(t, "A", got.History[2].Text)
}

func TestAppendTurnsAnswerOnly(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	chat, err := repo.CreateChat(ctx, "owner-1", "Explain TCP", "Explain TCP")
	require.NoError(t, err)

	matched, _, err := repo.AppendTurns(ctx, chat.ID, "owner-1", []model.Turn{
		{Role: model.RoleModel, Text: "TCP is..."},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	got, err := repo.GetChat(ctx, chat.ID, "owner-1")
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, model.RoleModel, got.History[1].Role)
	assert.Equal(t, "TCP is...", got.History[1].Text)
}

func TestAppendTurnsWrongOwnerMatchesNothing(t *testing.T) {
	db := newTestDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	chat, err := repo.CreateChat(ctx, "owner-1", "mine", "mine")
	require.NoError(t, err)

	matched, modified, err := repo.AppendTurns(ctx, chat.ID, "owner-2", []model.Turn{
		{Role: model.RoleModel, Text: "stolen"},
	})
	require.NoError(t, err)
	assert.Zero(t, matched)
	assert.Zero(t, modified)

	// 未命中时不能写入任何消息
	var turnCount int64
	require.NoError(t, db.Model(&model.Turn{}).Where("chat_id = ?", chat.ID).Count(&turnCount).Error)
	assert.Equal(t, int64(1), turnCount)
}

func TestGetChatWrongOwnerIndistinguishableFromMissing(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	chat, err := repo.CreateChat(ctx, "owner-1", "secret", "secret")
	require.NoError(t, err)

	wrongOwner, err := repo.GetChat(ctx, chat.ID, "owner-2")
	require.NoError(t, err)
	missing, err := repo.GetChat(ctx, "no-such-chat", "owner-1")
	require.NoError(t, err)

	assert.Nil(t, wrongOwner)
	assert.Nil(t, missing)
}

func TestListSummariesEmptyOwnerIsEmptySlice(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))

	summaries, err := repo.ListSummaries(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}
