package domain

// DecisionDashboard — сводная картина работы движка решений за последний час.
// Собирается одним походом в БД для главного экрана консоли.
type DecisionDashboard struct {
	Activity struct {
		TotalDecisions int64   `json:"total_decisions"`
		RPS            float64 `json:"rps"`
	} `json:"activity"`

	Outcomes struct {
		Scoped       int64 `json:"scoped"`
		Unrestricted int64 `json:"unrestricted"`
		Denied       int64 `json:"denied"`
	} `json:"outcomes"`

	Quality struct {
		P95LatencyMs float64 `json:"p95_latency_ms"`
	} `json:"quality"`

	// Разбивка отказов по причинам: главный индикатор проблем dark launch
	DenyReasons map[string]int64 `json:"deny_reasons"`

	PublishedVersions int64 `json:"published_versions"`
}

// AuditFilter — параметры выборки журнала решений в консоли
type AuditFilter struct {
	UserEmail string
	Decision  string
	Limit     int
}
