package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/upb/vector-cv/models"
	"github.com/upb/vector-cv/repositories"
	"go.uber.org/zap"
)

// SeedFile is the JSON document loaded by the seed command
type SeedFile struct {
	PersonalInfo     *SeedProfile `json:"personal_info"`
	ExperienceBlocks []SeedBlock  `json:"experience_blocks"`
}

// SeedProfile mirrors the profile fields of a seed file
type SeedProfile struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`
	LinkedIn  string `json:"linkedin"`
	GitHub    string `json:"github"`
	Portfolio string `json:"portfolio"`
	Summary   string `json:"summary"`
}

// SeedBlock is one experience block in a seed file
type SeedBlock struct {
	Title     string   `json:"title"`
	Company   string   `json:"company"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	BlockType string   `json:"block_type"`
	Priority  Priority `json:"priority"`
}

// Priority accepts both 2 and "2" in seed files
type Priority string

func (p *Priority) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*p = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Priority(s)
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid priority %s", raw)
	}
	*p = Priority(strconv.Itoa(n))
	return nil
}

// SeedSummary reports what a seed run changed
type SeedSummary struct {
	ProfileUpdated bool
	Created        int
	Updated        int
	ByCategory     map[models.Category]int
}

// ParseSeedFile decodes a seed document and validates block categories
func ParseSeedFile(r io.Reader) (*SeedFile, error) {
	var file SeedFile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, b := range file.ExperienceBlocks {
		if strings.TrimSpace(b.Title) == "" {
			return nil, fmt.Errorf("experience block %d: title is required", i)
		}
		if _, err := models.ParseCategory(b.BlockType); err != nil {
			return nil, fmt.Errorf("experience block %q: %w", b.Title, err)
		}
	}
	return &file, nil
}

// Seed upserts the profile and upserts blocks by title, regenerating every
// block embedding. All writes share one transaction.
func (s *Service) Seed(ctx context.Context, file *SeedFile) (*SeedSummary, error) {
	summary := &SeedSummary{ByCategory: make(map[models.Category]int)}

	err := s.tx.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		if p := file.PersonalInfo; p != nil {
			profile := models.NewProfileInfo(p.Name)
			profile.Email = p.Email
			profile.Phone = p.Phone
			profile.Location = p.Location
			profile.LinkedIn = p.LinkedIn
			profile.GitHub = p.GitHub
			profile.Portfolio = p.Portfolio
			profile.Summary = p.Summary
			if _, err := s.UpsertProfile(ctx, profile); err != nil {
				return err
			}
			summary.ProfileUpdated = true
		}

		for _, item := range file.ExperienceBlocks {
			created, category, err := s.seedBlock(ctx, item)
			if err != nil {
				return fmt.Errorf("seed block %q: %w", item.Title, err)
			}
			if created {
				summary.Created++
			} else {
				summary.Updated++
			}
			summary.ByCategory[category]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for category, n := range summary.ByCategory {
		s.logger.Info("seeded experience blocks", zap.String("category", category.String()), zap.Int("count", n))
	}
	s.logger.Info("seed completed",
		zap.Bool("profile_updated", summary.ProfileUpdated),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated))
	return summary, nil
}

func (s *Service) seedBlock(ctx context.Context, item SeedBlock) (bool, models.Category, error) {
	category, err := models.ParseCategory(item.BlockType)
	if err != nil {
		return false, "", err
	}
	title := strings.TrimSpace(item.Title)

	existing, err := s.repos.ContentBlocks.GetByTitle(ctx, title)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return false, "", err
	}

	if existing == nil {
		block := models.NewContentBlock(title, strings.TrimSpace(item.Company), item.Content, cleanTags(item.Tags), category, string(item.Priority))
		s.embedder.EmbedBlock(ctx, block)
		if err := s.repos.ContentBlocks.Create(ctx, block); err != nil {
			return false, "", err
		}
		s.logger.Debug("seed created block", zap.String("title", title))
		return true, category, nil
	}

	organization := strings.TrimSpace(item.Company)
	tags := cleanTags(item.Tags)
	patch := models.ContentBlockPatch{
		Organization: &organization,
		Body:         &item.Content,
		Tags:         &tags,
		Category:     &category,
	}
	if item.Priority != "" {
		priority := string(item.Priority)
		patch.Priority = &priority
	}
	patch.Apply(existing)
	s.embedder.EmbedBlock(ctx, existing)
	if err := s.repos.ContentBlocks.Update(ctx, existing); err != nil {
		return false, "", err
	}
	s.logger.Debug("seed updated block", zap.String("title", title))
	return false, category, nil
}
