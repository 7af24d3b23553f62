package service

import (
	"sort"

	"go.uber.org/zap"

	"mailfoxes/backend/internal/storage"
)

// DisplayNameSeed 一条展示名种子：把匹配到的旧展示名改写为新展示名。
//
// 历史上这些改名以一次性脚本的形式在线上手工执行；
// 现在收敛为版本化的种子数据，只在 cmd/migrate 供给阶段应用，
// 绝不在请求路径上重复执行。
type DisplayNameSeed struct {
	Version     int
	Match       string // 当前展示名（精确匹配）
	DisplayName string // 目标展示名
}

// DisplayNameSeeds 按版本排列的种子清单。只追加，不修改历史条目。
var DisplayNameSeeds = []DisplayNameSeed{
	{Version: 1, Match: "Exct - Auto", DisplayName: "Stansberry Research - Free"},
	{Version: 2, Match: "Exc - Auto", DisplayName: "Stansberry Research - Free"},
	{Version: 3, Match: "Agora - Auto", DisplayName: "Agora - MoneyMorning - Free"},
}

// ApplyDisplayNameSeeds 按版本顺序应用展示名种子。
// 匹配靠当前展示名，应用后不再有行匹配，天然幂等。返回改写行数。
func ApplyDisplayNameSeeds(repo storage.SourceRepository, log *zap.Logger) (int, error) {
	seeds := make([]DisplayNameSeed, len(DisplayNameSeeds))
	copy(seeds, DisplayNameSeeds)
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].Version < seeds[j].Version })

	sources, err := repo.ListSources(true)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, seed := range seeds {
		for i := range sources {
			source := &sources[i]
			if source.DisplayName == nil || *source.DisplayName != seed.Match {
				continue
			}

			name := seed.DisplayName
			source.DisplayName = &name
			if err := repo.UpdateSource(source); err != nil {
				return updated, err
			}
			updated++

			log.Info("display name seed applied",
				zap.Int("version", seed.Version),
				zap.String("source_id", source.ID),
				zap.String("from", seed.Match),
				zap.String("to", seed.DisplayName),
			)
		}
	}
	return updated, nil
}
