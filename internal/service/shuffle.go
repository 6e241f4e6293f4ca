package service

import (
	"strconv"
	"time"

	"github.com/whisperwall/internal/db"
)

// viewerSeed 将观看者 ID 折叠为 32 位散列。对 ID 的十进制字符串逐字符计算
// h = (h << 5) - h + c，即以 31 为底的多项式滚动散列，显式依赖 uint32 回绕，
// 跨平台结果一致。匿名观看者 (viewerID == 0) 的散列约定为 0。
func viewerSeed(viewerID uint) uint32 {
	if viewerID == 0 {
		return 0
	}

	var h uint32
	for _, c := range strconv.FormatUint(uint64(viewerID), 10) {
		h = (h << 5) - h + uint32(c)
	}
	return h
}

// daySeed 按 UTC 日历日生成种子：year*10000 + month*100 + day。
// 同一天内任意次调用得到同一个值，跨天自然变化。
func daySeed(day time.Time) uint64 {
	year, month, dom := day.UTC().Date()
	return uint64(year)*10000 + uint64(month)*100 + uint64(dom)
}

// splitmix64 是 Steele/Lea/Flood 的 SplitMix64 有限混合函数。
// 纯整数运算，任何平台上对相同输入产生相同输出，没有浮点舍入问题。
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// ShuffleForViewer 对候选页做 (日历日, 观看者) 维度稳定的伪随机排列：
// 同一天同一观看者得到完全相同的顺序，不同观看者或跨天顺序不同。
// 输入切片不会被修改。
func ShuffleForViewer(posts []db.Post, viewerID uint, day time.Time) []db.Post {
	out := make([]db.Post, len(posts))
	copy(out, posts)

	if len(out) < 2 {
		return out
	}

	seed := daySeed(day) + uint64(viewerSeed(viewerID))

	// Durstenfeld 洗牌，第 i 步用 splitmix64(seed + i) 抽取交换位置
	for i := len(out) - 1; i > 0; i-- {
		j := int(splitmix64(seed+uint64(i)) % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}

	return out
}
