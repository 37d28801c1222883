package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. The pipeline still answers, without web results or memory.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckUnconfigured indicates a component without credentials.
	CheckUnconfigured CheckResult = "unconfigured"
)

// Component names used in Report.Checks.
const (
	ComponentMemoryStore = "memory_store"
	ComponentSearch      = "search_provider"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	search SearchChecker
}

// New creates a Service.
func New(db DBPinger, search SearchChecker) *Service {
	return &Service{db: db, search: search}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)

	if err := s.db.Ping(ctx); err != nil {
		checks[ComponentMemoryStore] = CheckError
	} else {
		checks[ComponentMemoryStore] = CheckOK
	}

	if s.search != nil && s.search.Available() {
		checks[ComponentSearch] = CheckOK
	} else {
		checks[ComponentSearch] = CheckUnconfigured
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
