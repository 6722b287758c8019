package constants

import "time"

// Cache namespaces, the middle segment of every cache key.
const (
	NamespaceQualify    = "qualify"
	NamespaceAssessment = "assessment"
	NamespaceRoleplay   = "coach-roleplay"
)

var CacheTTL = struct {
	Qualify    time.Duration
	Assessment time.Duration
	Roleplay   time.Duration
	Rubric     time.Duration
}{
	Qualify:    7 * 24 * time.Hour,  // 7일 - 스킬 선별 결과
	Assessment: 14 * 24 * time.Hour, // 14일 - 스킬별 평가 + 코칭
	Roleplay:   7 * 24 * time.Hour,  // 7일 - 롤플레이 코칭 배치
	Rubric:     10 * time.Minute,    // 10분 - 루브릭 세트 메모리 캐시
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}

var RetryConfig = struct {
	MaxRetries int
	BaseDelay  time.Duration
	Factor     float64
	MaxDelay   time.Duration
	JitterMin  float64
	JitterMax  float64
}{
	MaxRetries: 2,
	BaseDelay:  500 * time.Millisecond,
	Factor:     1.8,
	MaxDelay:   8 * time.Second,
	JitterMin:  0.7,
	JitterMax:  1.3,
}

var LLMConfig = struct {
	DefaultBaseURL    string
	DefaultTimeout    time.Duration
	DefaultCoachModel string
	UpstreamBodyLimit int
	BreakerThreshold  int
	BreakerReset      time.Duration
}{
	DefaultBaseURL:    "https://openrouter.ai/api/v1",
	DefaultTimeout:    300 * time.Second,
	DefaultCoachModel: "openai/gpt-4o-mini",
	UpstreamBodyLimit: 400,
	BreakerThreshold:  5,
	BreakerReset:      30 * time.Second,
}

// ModelParams are the per-stage sampling settings.
var ModelParams = struct {
	QualifyTemperature float64
	QualifyMaxTokens   int64
	JudgeTemperature   float64
	JudgeMaxTokens     int64
	CoachTemperature   float64
	CoachMaxTokens     int64
}{
	QualifyTemperature: 0,
	QualifyMaxTokens:   8192,
	JudgeTemperature:   0,
	JudgeMaxTokens:     12000,
	CoachTemperature:   0.2,
	CoachMaxTokens:     2048,
}

var PipelineConfig = struct {
	DefaultConcurrency int
	HintSkillsPerGroup int
}{
	DefaultConcurrency: 8,
	HintSkillsPerGroup: 12,
}

var ServerConfig = struct {
	DefaultAddr        string
	DefaultMetricsAddr string
	ShutdownTimeout    time.Duration
	PreflightMaxAge    string
}{
	DefaultAddr:        ":8787",
	DefaultMetricsAddr: ":9090",
	ShutdownTimeout:    10 * time.Second,
	PreflightMaxAge:    "86400",
}

const (
	DefaultCacheVersion = "1"
	DefaultRubricSet    = "rubrics:v1"
)
