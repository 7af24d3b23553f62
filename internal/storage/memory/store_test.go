package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mailfoxes/backend/internal/domain"
	"mailfoxes/backend/internal/storage"
)

func newSource(id, addr string) *domain.EmailSource {
	return &domain.EmailSource{
		ID:           id,
		Name:         "Source " + id,
		EmailAddress: addr,
		CreatedAt:    time.Now().UTC(),
	}
}

func newEmail(id, sourceID string, receivedAt time.Time) *domain.EmailRecord {
	return &domain.EmailRecord{
		ID:          id,
		SourceID:    &sourceID,
		ToAddress:   "inbox@x.com",
		FromAddress: "sender@y.com",
		Subject:     "subject " + id,
		BodyText:    "body",
		URLs:        []string{},
		ReceivedAt:  receivedAt,
	}
}

func TestStoreSources(t *testing.T) {
	t.Run("保存并按地址查找", func(t *testing.T) {
		store := NewStore()

		assert.NoError(t, store.SaveSource(newSource("s1", "a@inbox.com")))

		found, err := store.GetSourceByAddress("A@inbox.com")
		assert.NoError(t, err)
		assert.Equal(t, "s1", found.ID)
	})

	t.Run("查找不存在的来源返回哨兵错误", func(t *testing.T) {
		store := NewStore()

		_, err := store.GetSource("missing")
		assert.ErrorIs(t, err, storage.ErrSourceNotFound)

		_, err = store.GetSourceByAddress("nobody@inbox.com")
		assert.ErrorIs(t, err, storage.ErrSourceNotFound)
	})

	t.Run("FindOrCreate 已有地址时返回现有行", func(t *testing.T) {
		store := NewStore()

		first, err := store.FindOrCreateSource(newSource("s1", "same@inbox.com"))
		assert.NoError(t, err)

		second, err := store.FindOrCreateSource(newSource("s2", "same@inbox.com"))
		assert.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)

		all, err := store.ListSources(true)
		assert.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("删除来源保留孤儿邮件", func(t *testing.T) {
		store := NewStore()

		assert.NoError(t, store.SaveSource(newSource("s1", "a@inbox.com")))
		assert.NoError(t, store.SaveEmail(newEmail("e1", "s1", time.Now())))

		assert.NoError(t, store.DeleteSource("s1"))

		record, err := store.GetEmail("e1")
		assert.NoError(t, err)
		assert.Nil(t, record.SourceID)
	})

	t.Run("删除父来源解除子来源引用", func(t *testing.T) {
		store := NewStore()

		assert.NoError(t, store.SaveSource(newSource("parent", "p@inbox.com")))
		child := newSource("child", "c@inbox.com")
		parentID := "parent"
		child.ParentID = &parentID
		assert.NoError(t, store.SaveSource(child))

		assert.NoError(t, store.DeleteSource("parent"))

		after, err := store.GetSource("child")
		assert.NoError(t, err)
		assert.Nil(t, after.ParentID)
	})

	t.Run("默认列表排除隐藏来源", func(t *testing.T) {
		store := NewStore()

		visible := newSource("v", "v@inbox.com")
		hidden := newSource("h", "h@inbox.com")
		hidden.Hidden = true
		assert.NoError(t, store.SaveSource(visible))
		assert.NoError(t, store.SaveSource(hidden))

		defaultView, err := store.ListSources(false)
		assert.NoError(t, err)
		assert.Len(t, defaultView, 1)
		assert.Equal(t, "v", defaultView[0].ID)

		fullView, err := store.ListSources(true)
		assert.NoError(t, err)
		assert.Len(t, fullView, 2)
	})
}

func TestStoreEmails(t *testing.T) {
	t.Run("列表按接收时间倒序", func(t *testing.T) {
		store := NewStore()
		base := time.Now().UTC()

		assert.NoError(t, store.SaveEmail(newEmail("old", "s1", base.Add(-2*time.Hour))))
		assert.NoError(t, store.SaveEmail(newEmail("mid", "s1", base.Add(-time.Hour))))
		assert.NoError(t, store.SaveEmail(newEmail("new", "s1", base)))

		records, err := store.ListEmails(domain.EmailFilter{})
		assert.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, "new", records[0].ID)
		assert.Equal(t, "mid", records[1].ID)
		assert.Equal(t, "old", records[2].ID)
	})

	t.Run("分页参数生效", func(t *testing.T) {
		store := NewStore()
		base := time.Now().UTC()

		for i, id := range []string{"a", "b", "c", "d"} {
			assert.NoError(t, store.SaveEmail(newEmail(id, "s1", base.Add(time.Duration(i)*time.Minute))))
		}

		page, err := store.ListEmails(domain.EmailFilter{Limit: 2, Offset: 1})
		assert.NoError(t, err)
		assert.Len(t, page, 2)
		assert.Equal(t, "c", page[0].ID)
		assert.Equal(t, "b", page[1].ID)
	})

	t.Run("按处理状态过滤", func(t *testing.T) {
		store := NewStore()

		assert.NoError(t, store.SaveEmail(newEmail("e1", "s1", time.Now())))
		assert.NoError(t, store.SaveEmail(newEmail("e2", "s1", time.Now())))
		assert.NoError(t, store.MarkProcessed("e1"))

		processed := true
		records, err := store.ListEmails(domain.EmailFilter{Processed: &processed})
		assert.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, "e1", records[0].ID)
	})

	t.Run("回填候选只含垃圾分为零的邮件", func(t *testing.T) {
		store := NewStore()

		assert.NoError(t, store.SaveEmail(newEmail("scored", "s1", time.Now())))
		assert.NoError(t, store.SaveEmail(newEmail("pending", "s1", time.Now())))
		assert.NoError(t, store.UpdateSpamScore("scored", 3.1))

		records, err := store.ListEmailsForSpamBackfill("s1", 0)
		assert.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, "pending", records[0].ID)
	})

	t.Run("返回的记录是副本", func(t *testing.T) {
		store := NewStore()

		original := newEmail("e1", "s1", time.Now())
		original.URLs = []string{"http://a.com"}
		assert.NoError(t, store.SaveEmail(original))

		fetched, err := store.GetEmail("e1")
		assert.NoError(t, err)
		fetched.URLs[0] = "http://tampered.com"
		fetched.Subject = "tampered"

		again, err := store.GetEmail("e1")
		assert.NoError(t, err)
		assert.Equal(t, "http://a.com", again.URLs[0])
		assert.Equal(t, "subject e1", again.Subject)
	})
}
