package service

import (
	"context"
	"math"
	"sort"

	"github.com/tobyn/brandlens/internal/domain"
	"github.com/tobyn/brandlens/internal/repository"
)

// LeaderboardEntry is one brand's row in the session leaderboard.
type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	Brand           string `json:"brand"`
	MentionCount    int    `json:"mention_count"`
	VisibilityScore int    `json:"visibility_score"`
	CitationShare   int    `json:"citation_share"`
}

// BrandPerformance is one brand's cell in a competitive matrix row.
type BrandPerformance struct {
	MentionCount int    `json:"mention_count"`
	IsPresent    bool   `json:"is_present"`
	IsWinner     bool   `json:"is_winner"`
	Context      string `json:"context,omitempty"`
}

// MatrixRow is the per-prompt presence/winner grid entry. Winner is nil when
// the top mention count is zero or shared by two or more brands.
type MatrixRow struct {
	PromptID         string                       `json:"prompt_id"`
	PromptText       string                       `json:"prompt_text"`
	BrandPerformance map[string]*BrandPerformance `json:"brand_performance"`
	Winner           *string                      `json:"winner"`
}

// BrandAggregatedStats summarizes one brand across a whole session.
type BrandAggregatedStats struct {
	TotalMentions  int `json:"total_mentions"`
	PromptsWon     int `json:"prompts_won"`
	PromptsPresent int `json:"prompts_present"`
	PromptsMissed  int `json:"prompts_missed"`
	CitationShare  int `json:"citation_share"`
}

// CompetitiveMatrix is the full per-prompt, per-brand grid plus aggregates.
type CompetitiveMatrix struct {
	Matrix          []MatrixRow                      `json:"matrix"`
	AggregatedStats map[string]*BrandAggregatedStats `json:"aggregated_stats"`
	Brands          []string                         `json:"brands"`
	TotalPrompts    int                              `json:"total_prompts"`
}

func roundPct(numerator, denominator int) int {
	if denominator <= 0 {
		return 0
	}
	return int(math.Round(float64(numerator) / float64(denominator) * 100))
}

// uniqueBrands collapses duplicate entries while preserving first-seen order.
// The brand list allows duplicates at creation; aggregation treats them as
// one counter.
func uniqueBrands(brands []string) []string {
	seen := make(map[string]struct{}, len(brands))
	out := make([]string, 0, len(brands))
	for _, b := range brands {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// BuildLeaderboard ranks brands by total mention count. Brands with zero
// mentions still appear. The sort is stable, so ties keep brand-list order,
// and tied brands do not share a rank number.
func BuildLeaderboard(brands []string, mentions []domain.Mention, responseCount int) []LeaderboardEntry {
	ordered := uniqueBrands(brands)

	type brandStats struct {
		mentions  int
		responses map[string]struct{}
	}
	stats := make(map[string]*brandStats, len(ordered))
	for _, b := range ordered {
		stats[b] = &brandStats{responses: make(map[string]struct{})}
	}

	totalMentions := 0
	for _, m := range mentions {
		s, ok := stats[m.BrandName]
		if !ok {
			continue
		}
		s.mentions += m.MentionCount
		s.responses[m.ResponseID] = struct{}{}
		totalMentions += m.MentionCount
	}

	entries := make([]LeaderboardEntry, 0, len(ordered))
	for _, b := range ordered {
		s := stats[b]
		visibility := 0
		if responseCount > 0 {
			visibility = roundPct(len(s.responses), responseCount)
		}
		share := roundPct(s.mentions, max(1, totalMentions))
		entries = append(entries, LeaderboardEntry{
			Brand:           b,
			MentionCount:    s.mentions,
			VisibilityScore: visibility,
			CitationShare:   share,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MentionCount > entries[j].MentionCount
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}

// BuildCompetitiveMatrix computes the per-prompt grid and aggregated stats.
// Mention counts for a (prompt, brand) pair sum across rows; the first
// non-empty context wins.
func BuildCompetitiveMatrix(brands []string, promptList []domain.Prompt, mentions []domain.Mention) *CompetitiveMatrix {
	ordered := uniqueBrands(brands)
	totalPrompts := len(promptList)

	type cell struct {
		count   int
		context string
	}
	// (promptID, brand) -> summed count + first context
	cells := make(map[string]map[string]*cell, totalPrompts)
	totalMentionsAll := 0
	brandTotals := make(map[string]int, len(ordered))
	brandPrompts := make(map[string]map[string]struct{}, len(ordered))

	for _, m := range mentions {
		byBrand, ok := cells[m.PromptID]
		if !ok {
			byBrand = make(map[string]*cell)
			cells[m.PromptID] = byBrand
		}
		c, ok := byBrand[m.BrandName]
		if !ok {
			c = &cell{}
			byBrand[m.BrandName] = c
		}
		c.count += m.MentionCount
		if c.context == "" {
			c.context = m.Context
		}

		totalMentionsAll += m.MentionCount
		brandTotals[m.BrandName] += m.MentionCount
		if brandPrompts[m.BrandName] == nil {
			brandPrompts[m.BrandName] = make(map[string]struct{})
		}
		brandPrompts[m.BrandName][m.PromptID] = struct{}{}
	}

	matrix := make([]MatrixRow, 0, totalPrompts)
	promptsWon := make(map[string]int, len(ordered))

	for _, p := range promptList {
		row := MatrixRow{
			PromptID:         p.ID,
			PromptText:       p.PromptText,
			BrandPerformance: make(map[string]*BrandPerformance, len(ordered)),
		}

		maxMentions := 0
		for _, b := range ordered {
			count, context := 0, ""
			if c, ok := cells[p.ID][b]; ok {
				count, context = c.count, c.context
			}
			row.BrandPerformance[b] = &BrandPerformance{
				MentionCount: count,
				IsPresent:    count > 0,
				Context:      context,
			}
			if count > maxMentions {
				maxMentions = count
			}
		}

		if maxMentions > 0 {
			var winners []string
			for _, b := range ordered {
				if row.BrandPerformance[b].MentionCount == maxMentions {
					winners = append(winners, b)
				}
			}
			if len(winners) == 1 {
				winner := winners[0]
				row.Winner = &winner
				row.BrandPerformance[winner].IsWinner = true
				promptsWon[winner]++
			}
		}

		matrix = append(matrix, row)
	}

	aggregated := make(map[string]*BrandAggregatedStats, len(ordered))
	for _, b := range ordered {
		present := len(brandPrompts[b])
		aggregated[b] = &BrandAggregatedStats{
			TotalMentions:  brandTotals[b],
			PromptsWon:     promptsWon[b],
			PromptsPresent: present,
			PromptsMissed:  totalPrompts - present,
			CitationShare:  roundPct(brandTotals[b], max(1, totalMentionsAll)),
		}
	}

	return &CompetitiveMatrix{
		Matrix:          matrix,
		AggregatedStats: aggregated,
		Brands:          ordered,
		TotalPrompts:    totalPrompts,
	}
}

// AnalyticsService loads a session's persisted rows and runs the pure
// computations over them. Callable for any session regardless of status.
type AnalyticsService struct {
	sessions  *repository.SessionRepository
	prompts   *repository.PromptRepository
	responses *repository.ResponseRepository
	mentions  *repository.MentionRepository
}

// NewAnalyticsService creates the analytics service.
func NewAnalyticsService(
	sessions *repository.SessionRepository,
	prompts *repository.PromptRepository,
	responses *repository.ResponseRepository,
	mentions *repository.MentionRepository,
) *AnalyticsService {
	return &AnalyticsService{
		sessions:  sessions,
		prompts:   prompts,
		responses: responses,
		mentions:  mentions,
	}
}

// GetLeaderboard computes the leaderboard for a session.
func (s *AnalyticsService) GetLeaderboard(ctx context.Context, sessionID string) ([]LeaderboardEntry, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	mentions, err := s.mentions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	responseCount, err := s.responses.CountBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return BuildLeaderboard(session.Brands, mentions, int(responseCount)), nil
}

// GetCompetitiveMatrix computes the per-prompt grid for a session.
func (s *AnalyticsService) GetCompetitiveMatrix(ctx context.Context, sessionID string) (*CompetitiveMatrix, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	promptList, err := s.prompts.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	mentions, err := s.mentions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return BuildCompetitiveMatrix(session.Brands, promptList, mentions), nil
}
