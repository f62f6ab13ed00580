package congestion

import "fmt"

// Level is the three-step ordinal congestion scale
type Level string

const (
	Low    Level = "LOW"
	Medium Level = "MEDIUM"
	High   Level = "HIGH"
)

var levelLabels = map[Level]string{
	Low:    "여유",
	Medium: "보통",
	High:   "혼잡",
}

var levelMessages = map[Level]string{
	High:   "이 시간대는 충전 수요가 비교적 높은 편입니다.",
	Medium: "이 시간대는 보통 수준의 충전 수요를 보입니다.",
	Low:    "이 시간대는 비교적 여유로운 편입니다.",
}

// Label returns the Korean dashboard label (여유/보통/혼잡)
func (l Level) Label() string {
	return levelLabels[l]
}

// Message returns the fixed user-facing sentence for the level
func (l Level) Message() string {
	return levelMessages[l]
}

// ParseLevel accepts either the English constant or the Korean label
func ParseLevel(s string) (Level, error) {
	switch s {
	case string(Low), "여유":
		return Low, nil
	case string(Medium), "보통":
		return Medium, nil
	case string(High), "혼잡":
		return High, nil
	}
	return "", fmt.Errorf("unknown congestion level %q", s)
}
