package service

import (
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"pivot_backtest/internal/models"
)

// SamplePivots: случайные n пивотов с сохранением хронологии.
// n <= 0 или n >= len => все пивоты. Один seed => одна и та же выборка.
func SamplePivots(pivots []models.Pivot, n int, seed int64) []models.Pivot {
	if n <= 0 || n >= len(pivots) {
		return pivots
	}
	rnd := rand.New(rand.NewSource(seed))
	idx := rnd.Perm(len(pivots))[:n]
	sort.Ints(idx)

	out := make([]models.Pivot, 0, n)
	for _, i := range idx {
		out = append(out, pivots[i])
	}
	return out
}

// sampleSeed: свой seed на (pair, htf), чтобы выборки пар не зависели от порядка воркеров.
func sampleSeed(base int64, pair string, htf models.Timeframe) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(pair))
	_, _ = h.Write([]byte{'/'})
	_, _ = h.Write([]byte(htf))
	return base ^ int64(h.Sum64())
}

// InWindow: пивоты с временем K2 в [from, to]. Нулевая граница = без ограничения.
func InWindow(pivots []models.Pivot, from, to time.Time) []models.Pivot {
	if from.IsZero() && to.IsZero() {
		return pivots
	}
	out := make([]models.Pivot, 0, len(pivots))
	for _, p := range pivots {
		if !from.IsZero() && p.Time.Before(from) {
			continue
		}
		if !to.IsZero() && p.Time.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}
