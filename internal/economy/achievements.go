package economy

import (
	"idle_tapper/internal/domain"
)

// Metric is the save counter an achievement tracks.
type Metric string

const (
	MetricTaps      Metric = "taps"
	MetricEarnings  Metric = "earnings"
	MetricCards     Metric = "cards"
	MetricCountries Metric = "countries"
	MetricCombo     Metric = "combo"
)

func metricValue(s *domain.SaveState, m Metric) float64 {
	switch m {
	case MetricTaps:
		return float64(s.Taps)
	case MetricEarnings:
		return float64(s.TotalEarnings)
	case MetricCards:
		return float64(len(s.Collection.Cards))
	case MetricCountries:
		return float64(len(s.Owned))
	case MetricCombo:
		return float64(s.BestCombo)
	}
	return 0
}

// AchievementStatus is an achievements-screen row.
type AchievementStatus struct {
	Achievement
	Progress int  `json:"progress"` // 0-100
	Claimed  bool `json:"claimed"`
}

// CanClaim reports whether the threshold is reached and unclaimed.
func (a AchievementStatus) CanClaim() bool {
	return a.Progress >= 100 && !a.Claimed
}

func (e *Economy) Achievements(s *domain.SaveState) []AchievementStatus {
	out := make([]AchievementStatus, 0, len(e.Catalog.Achievements))
	for _, a := range e.Catalog.Achievements {
		out = append(out, AchievementStatus{
			Achievement: a,
			Progress:    progress(metricValue(s, a.Metric), a.Threshold),
			Claimed:     domain.HasString(s.Achievements, a.ID),
		})
	}
	return out
}

func progress(value, target float64) int {
	if target <= 0 {
		return 100
	}
	p := int(value * 100 / target)
	return min(100, max(0, p))
}

// ClaimAchievement grants the reward once and unlocks the linked title.
func (e *Economy) ClaimAchievement(s *domain.SaveState, id string) (Achievement, error) {
	a, ok := e.Catalog.Achievement(id)
	if !ok {
		return Achievement{}, ErrUnknownItem
	}
	if domain.HasString(s.Achievements, id) {
		return Achievement{}, ErrAlreadyClaimed
	}
	if metricValue(s, a.Metric) < a.Threshold {
		return Achievement{}, ErrAchievementLocked
	}
	s.Achievements = domain.AddString(s.Achievements, id)
	Credit(s, a.Reward)
	if a.Title != "" {
		s.TitleState.Unlocked = domain.AddString(s.TitleState.Unlocked, a.Title)
	}
	return a, nil
}

// EquipTitle equips an unlocked title; an empty id unequips.
func (e *Economy) EquipTitle(s *domain.SaveState, title string) error {
	if title != "" && !domain.HasString(s.TitleState.Unlocked, title) {
		return ErrTitleLocked
	}
	s.TitleState.Equipped = title
	return nil
}
