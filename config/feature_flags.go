package config

import (
	"errors"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Feature flag names.
const (
	// One grade per (student, assignment).
	FeatureGradingUniquePerAssignment = "grading.unique_per_assignment"
	// Only enrolled students may be marked.
	FeatureAttendanceStrictRoster = "attendance.strict_roster"
	// Pending registration stays open after the first admin exists.
	FeatureIdentitySelfRegistration = "identity.self_registration"
)

var ErrFeatureNotFound = errors.New("feature not found")

// Feature is one flag and its current value.
type Feature struct {
	Name        string
	Description string
	Enabled     bool
}

var defaultFeatures = []Feature{
	{FeatureGradingUniquePerAssignment, "Reject a second grade for the same student and assignment", true},
	{FeatureAttendanceStrictRoster, "Reject attendance records for students not enrolled in the course", false},
	{FeatureIdentitySelfRegistration, "Allow pending self-registration after the first admin exists", true},
}

// FeatureFlags holds record-keeping toggles. Values may be flipped at
// runtime.
type FeatureFlags struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

// NewFeatureFlags returns flags at their defaults.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{enabled: make(map[string]bool, len(defaultFeatures))}
	for _, f := range defaultFeatures {
		ff.enabled[f.Name] = f.Enabled
	}
	return ff
}

// LoadFeatureFlags applies FEATURE_<NAME>=true|false variables over the
// defaults, e.g. FEATURE_GRADING_UNIQUE_PER_ASSIGNMENT=false. Unparsable
// values are ignored.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	for name := range ff.enabled {
		if b, err := strconv.ParseBool(os.Getenv(envKey(name))); err == nil {
			ff.enabled[name] = b
		}
	}
	return ff
}

// envKey maps "grading.unique_per_assignment" to
// "FEATURE_GRADING_UNIQUE_PER_ASSIGNMENT".
func envKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// IsEnabled reports a flag's value. Unknown features are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	return ff.enabled[name]
}

func (ff *FeatureFlags) SetEnabled(name string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if _, ok := ff.enabled[name]; !ok {
		return ErrFeatureNotFound
	}
	ff.enabled[name] = enabled
	return nil
}

// GetAllFeatures lists every flag by name.
func (ff *FeatureFlags) GetAllFeatures() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()
	out := slices.Clone(defaultFeatures)
	for i := range out {
		out[i].Enabled = ff.enabled[out[i].Name]
	}
	slices.SortFunc(out, func(a, b Feature) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (ff *FeatureFlags) UniqueGradesPerAssignment() bool {
	return ff.IsEnabled(FeatureGradingUniquePerAssignment)
}

func (ff *FeatureFlags) StrictAttendanceRoster() bool {
	return ff.IsEnabled(FeatureAttendanceStrictRoster)
}

func (ff *FeatureFlags) SelfRegistration() bool {
	return ff.IsEnabled(FeatureIdentitySelfRegistration)
}
