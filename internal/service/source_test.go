package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"mailfoxes/backend/internal/storage"
	"mailfoxes/backend/internal/storage/memory"
)

func TestSourceServiceResolve(t *testing.T) {
	t.Run("命中已有来源时直接返回", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSourceService(store)

		created, err := svc.Create(CreateSourceInput{
			Name:         "Agora",
			EmailAddress: "agora@inbox.mailfoxes.local",
		})
		assert.NoError(t, err)

		id, err := svc.Resolve("agora@inbox.mailfoxes.local", "news@agora.com")

		assert.NoError(t, err)
		assert.Equal(t, created.ID, id)
	})

	t.Run("未命中时依发件域名自动创建", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSourceService(store)

		id, err := svc.Resolve("b@y.com", "newsletter@stansberry.com")
		assert.NoError(t, err)

		source, err := svc.Get(id)
		assert.NoError(t, err)
		assert.Equal(t, "Stansberry", source.Name)
		assert.NotNil(t, source.DisplayName)
		assert.Equal(t, "Stansberry - Auto", *source.DisplayName)
		assert.Equal(t, "b@y.com", source.EmailAddress)
	})

	t.Run("发件地址带尖括号时剥离后推导", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSourceService(store)

		id, err := svc.Resolve("inbox@x.com", "Exct Daily <alerts@exct.com>")
		assert.NoError(t, err)

		source, err := svc.Get(id)
		assert.NoError(t, err)
		assert.Equal(t, "Exct", source.Name)
	})

	t.Run("发件地址无法推导时回退 Unknown", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSourceService(store)

		id, err := svc.Resolve("inbox@x.com", "")
		assert.NoError(t, err)

		source, err := svc.Get(id)
		assert.NoError(t, err)
		assert.Equal(t, "Unknown", source.Name)
	})

	t.Run("并发解析同一新地址只产生一个来源", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSourceService(store)

		const workers = 16
		ids := make([]string, workers)
		var wg sync.WaitGroup

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := svc.Resolve("race@inbox.com", "news@agora.com")
				assert.NoError(t, err)
				ids[i] = id
			}(i)
		}
		wg.Wait()

		for i := 1; i < workers; i++ {
			assert.Equal(t, ids[0], ids[i])
		}

		sources, err := svc.List(true)
		assert.NoError(t, err)
		assert.Len(t, sources, 1)
	})
}

func TestSourceServiceCreate(t *testing.T) {
	t.Run("地址缺少 @ 时拒绝", func(t *testing.T) {
		svc := NewSourceService(memory.NewStore())

		_, err := svc.Create(CreateSourceInput{Name: "Bad", EmailAddress: "not-an-address"})

		assert.ErrorIs(t, err, ErrAddressInvalid)
	})

	t.Run("地址重复时返回冲突", func(t *testing.T) {
		svc := NewSourceService(memory.NewStore())

		_, err := svc.Create(CreateSourceInput{Name: "First", EmailAddress: "dup@inbox.com"})
		assert.NoError(t, err)

		_, err = svc.Create(CreateSourceInput{Name: "Second", EmailAddress: "DUP@inbox.com"})
		assert.ErrorIs(t, err, ErrSourceConflict)
	})
}

func TestSourceServiceConsolidate(t *testing.T) {
	t.Run("合并设置父引用并隐藏子来源", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSourceService(store)

		parent, err := svc.Create(CreateSourceInput{Name: "Parent", EmailAddress: "p@inbox.com"})
		assert.NoError(t, err)
		child, err := svc.Create(CreateSourceInput{Name: "Child", EmailAddress: "c@inbox.com"})
		assert.NoError(t, err)

		merged, err := svc.Consolidate(child.ID, parent.ID)

		assert.NoError(t, err)
		assert.NotNil(t, merged.ParentID)
		assert.Equal(t, parent.ID, *merged.ParentID)
		assert.True(t, merged.Hidden)

		// 默认视图排除隐藏来源
		visible, err := svc.List(false)
		assert.NoError(t, err)
		assert.Len(t, visible, 1)
		assert.Equal(t, parent.ID, visible[0].ID)
	})

	t.Run("不允许合并到自身", func(t *testing.T) {
		svc := NewSourceService(memory.NewStore())

		source, err := svc.Create(CreateSourceInput{Name: "Solo", EmailAddress: "s@inbox.com"})
		assert.NoError(t, err)

		_, err = svc.Consolidate(source.ID, source.ID)
		assert.ErrorIs(t, err, ErrSelfParent)
	})

	t.Run("父来源不存在时报错", func(t *testing.T) {
		svc := NewSourceService(memory.NewStore())

		source, err := svc.Create(CreateSourceInput{Name: "Solo", EmailAddress: "s@inbox.com"})
		assert.NoError(t, err)

		_, err = svc.Consolidate(source.ID, "missing-id")
		assert.ErrorIs(t, err, storage.ErrSourceNotFound)
	})
}

func TestSourceServiceDisplayFor(t *testing.T) {
	t.Run("子来源展示父来源的身份", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewSourceService(store)

		parentDisplay := "Agora - MoneyMorning - Free"
		parent, err := svc.Create(CreateSourceInput{
			Name:         "Agora",
			EmailAddress: "p@inbox.com",
			DisplayName:  &parentDisplay,
		})
		assert.NoError(t, err)

		child, err := svc.Create(CreateSourceInput{Name: "Child", EmailAddress: "c@inbox.com"})
		assert.NoError(t, err)

		merged, err := svc.Consolidate(child.ID, parent.ID)
		assert.NoError(t, err)

		assert.Equal(t, "Agora - MoneyMorning - Free", svc.DisplayFor(merged))
	})

	t.Run("无父引用时展示自身身份", func(t *testing.T) {
		svc := NewSourceService(memory.NewStore())

		source, err := svc.Create(CreateSourceInput{Name: "Solo", EmailAddress: "s@inbox.com"})
		assert.NoError(t, err)

		assert.Equal(t, "Solo", svc.DisplayFor(source))
	})
}
