package interview

import (
	"fmt"
	"math"

	"hireLoop/internal/database"
)

// Policy 选择整体得分的聚合方式。所有得分都在 0-10 区间。
type Policy string

const (
	// PolicyMean: 各题得分的算术平均，四舍五入到整数。
	PolicyMean Policy = "mean"
	// PolicyRubric: 按维度加权（技术 0.80、沟通 0.05、解决问题 0.10、经验 0.05）。
	PolicyRubric Policy = "rubric"
)

// ParsePolicy 把配置值解析为 Policy，空值视为 mean。
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case "", PolicyMean:
		return PolicyMean, nil
	case PolicyRubric:
		return PolicyRubric, nil
	default:
		return "", fmt.Errorf("unknown scoring policy %q", raw)
	}
}

const (
	weightTechnical      = 0.80
	weightCommunication  = 0.05
	weightProblemSolving = 0.10
	weightExperience     = 0.05
)

// MaxScore 是标准分制的上限。
const MaxScore = 10

// Mean 对已评分的答案求 round(sum/n)；没有任何评分时 ok 为 false。
func Mean(answers []database.AnswerRecord) (score float64, ok bool) {
	var sum, n int
	for _, a := range answers {
		if a.Score == nil {
			continue
		}
		sum += *a.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return math.Round(float64(sum) / float64(n)), true
}

// Weighted 按维度权重加权，保留一位小数。
func Weighted(r database.Ratings) float64 {
	total := normalizeRating(r.Technical)*weightTechnical +
		normalizeRating(r.Communication)*weightCommunication +
		normalizeRating(r.ProblemSolving)*weightProblemSolving +
		normalizeRating(r.Experience)*weightExperience
	return math.Round(total*10) / 10
}

// Percent 把 0-10 分换算为报告中展示的 0-100。
func Percent(score float64) float64 {
	return math.Round(score * 10)
}

// normalizeScore 把模型给出的分数映射到 0-10，(10, 100] 区间按百分制处理。
func normalizeScore(v float64) (int, error) {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return 0, fmt.Errorf("score %v out of range", v)
	}
	if v > MaxScore {
		v = v / 10
	}
	return int(math.Round(v)), nil
}

func normalizeRating(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > MaxScore && v <= 100:
		return v / 10
	case v > 100:
		return MaxScore
	default:
		return v
	}
}
