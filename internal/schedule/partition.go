package schedule

import (
	"fmt"

	"readplan/pkg/contract"
)

// Partition 把单卷的章节切成 n 个连续、非空、字数接近的组，返回每组的结束章号。
//
// 在阈值 t ∈ [0,1] 上二分：累计字数使 (avg-sum)/avg <= t 时结组。
// t 越大结组越早、组数越多；t=1 时每章一组。
// 组数与 t 单调但可能跳过 n，因此迭代受 maxIter 约束，超出返回 ErrPartitionNotConverged。
func Partition(chapters []contract.ChapterRecord, n, maxIter int) ([]int, error) {
	if n < 1 || len(chapters) == 0 {
		return nil, fmt.Errorf("%w: partition %d chapters into %d", contract.ErrInvalidInput, len(chapters), n)
	}
	last := chapters[len(chapters)-1].Chapter
	if n == 1 {
		return []int{last}, nil
	}
	title := chapters[0].Title
	if len(chapters) < n {
		return nil, fmt.Errorf("%w: %s has %d chapters for %d days", contract.ErrInsufficientChapters, title, len(chapters), n)
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	weights, numbers := chapterWeights(chapters)
	var total float64
	for _, w := range weights {
		total += w
	}
	avg := total / float64(n)

	low, high, t := 0.0, 1.0, 0.0
	for i := 0; i < maxIter; i++ {
		ends := groupEnds(weights, numbers, avg, t)
		switch {
		case len(ends) == n:
			return ends, nil
		case len(ends) < n:
			low = t
		default:
			high = t
		}
		t = (low + high) / 2
	}
	return nil, fmt.Errorf("%w: %s into %d days after %d iterations", contract.ErrPartitionNotConverged, title, n, maxIter)
}

// chapterWeights 返回章节权重与章号；全卷字数为 0 时按每章权重 1 处理。
func chapterWeights(chapters []contract.ChapterRecord) ([]float64, []int) {
	weights := make([]float64, len(chapters))
	numbers := make([]int, len(chapters))
	var total float64
	for i, c := range chapters {
		weights[i] = float64(c.Length)
		numbers[i] = c.Chapter
		total += weights[i]
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1
		}
	}
	return weights, numbers
}

// groupEnds 以阈值 t 贪心扫描一遍，返回各组结束章号；末尾未结组的章节自成一组。
func groupEnds(weights []float64, numbers []int, avg, t float64) []int {
	var (
		ends []int
		sum  float64
		open bool
	)
	for i, w := range weights {
		sum += w
		open = true
		if (avg-sum)/avg <= t {
			ends = append(ends, numbers[i])
			sum = 0
			open = false
		}
	}
	if open {
		ends = append(ends, numbers[len(numbers)-1])
	}
	return ends
}
