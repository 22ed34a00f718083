package service

import (
	"sort"

	"nsi_edu_backend/internal/model"
)

// AwardCatalog is the read-only set of badge and achievement definitions
// the engine evaluates against.
type AwardCatalog interface {
	ActiveBadges() []model.Badge
	Achievement(code string) (model.Achievement, bool)
}

// StaticCatalog is an immutable in-memory AwardCatalog.
type StaticCatalog struct {
	badges       []model.Badge
	achievements map[string]model.Achievement
}

// NewStaticCatalog copies its inputs. Inactive badges are dropped.
func NewStaticCatalog(badges []model.Badge, achievements []model.Achievement) *StaticCatalog {
	c := &StaticCatalog{
		badges:       make([]model.Badge, 0, len(badges)),
		achievements: make(map[string]model.Achievement, len(achievements)),
	}
	for _, b := range badges {
		if b.IsActive {
			c.badges = append(c.badges, b)
		}
	}
	sort.SliceStable(c.badges, func(i, j int) bool {
		return c.badges[i].XPRequirement < c.badges[j].XPRequirement
	})
	for _, a := range achievements {
		c.achievements[a.Code] = a
	}
	return c
}

func (c *StaticCatalog) ActiveBadges() []model.Badge {
	out := make([]model.Badge, len(c.badges))
	copy(out, c.badges)
	return out
}

func (c *StaticCatalog) Achievement(code string) (model.Achievement, bool) {
	a, ok := c.achievements[code]
	return a, ok
}

// DefaultBadges is the stock badge ladder seeded on a fresh install.
func DefaultBadges() []model.Badge {
	return []model.Badge{
		{Code: "BEGINNER", Name: "Débutant", Description: "Premiers pas dans l'aventure", Icon: "🌱", XPRequirement: 0, SortOrder: 1, IsActive: true},
		{Code: "EXPLORER", Name: "Explorateur", Description: "Gagner 100 XP", Icon: "🧭", XPRequirement: 100, SortOrder: 2, IsActive: true},
		{Code: "SCHOLAR", Name: "Érudit", Description: "Gagner 500 XP", Icon: "📚", XPRequirement: 500, SortOrder: 3, IsActive: true},
		{Code: "EXPERT", Name: "Expert", Description: "Gagner 1000 XP", Icon: "🎓", XPRequirement: 1000, SortOrder: 4, IsActive: true},
		{Code: "MASTER", Name: "Maître", Description: "Gagner 2000 XP", Icon: "👑", XPRequirement: 2000, SortOrder: 5, IsActive: true},
		{Code: "LEGEND", Name: "Légende", Description: "Gagner 5000 XP", Icon: "⭐", XPRequirement: 5000, SortOrder: 6, IsActive: true},
	}
}

// DefaultAchievements holds one definition per predicate the engine knows.
func DefaultAchievements() []model.Achievement {
	return []model.Achievement{
		{Code: model.AchievementFirstExercise, Name: "Premier pas", Description: "Réussir votre premier exercice", Icon: "🎯", XPReward: 50},
		{Code: model.AchievementTenExercises, Name: "Persévérant", Description: "Réussir 10 exercices différents", Icon: "🔟", XPReward: 100},
		{Code: model.AchievementPerfectScore, Name: "Perfectionniste", Description: "Obtenir un score parfait", Icon: "💯", XPReward: 75},
		{Code: model.AchievementWeekStreak, Name: "Régulier", Description: "Connexion 7 jours d'affilée", Icon: "🔥", XPReward: 150},
	}
}

func DefaultAchievement(code string) (model.Achievement, bool) {
	for _, a := range DefaultAchievements() {
		if a.Code == code {
			return a, true
		}
	}
	return model.Achievement{}, false
}

// DefaultCatalog is the catalog a fresh install ends up with after seeding.
func DefaultCatalog() *StaticCatalog {
	return NewStaticCatalog(DefaultBadges(), DefaultAchievements())
}
