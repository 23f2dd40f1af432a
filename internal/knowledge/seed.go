package knowledge

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/textnorm"
)

// SeedFile is the YAML document used to import and export curated entries.
type SeedFile struct {
	Entries []SeedEntry `yaml:"entries"`
}

// SeedEntry is one question and answer in a seed file.
type SeedEntry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	Verified *bool  `yaml:"verified,omitempty"`
}

// IsVerified reports the verified flag, defaulting to true for curated
// seed content.
func (e SeedEntry) IsVerified() bool {
	return e.Verified == nil || *e.Verified
}

// LoadSeedFile reads and parses a seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

// WriteSeedFile serialises seed to path.
func WriteSeedFile(path string, seed *SeedFile) error {
	data, err := yaml.Marshal(seed)
	if err != nil {
		return fmt.Errorf("marshal seed file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write seed file: %w", err)
	}
	return nil
}

// ImportResult summarises an import run.
type ImportResult struct {
	Imported  int
	Unchanged int
	Skipped   int
	Errors    []string
	Duration  time.Duration
}

// ProgressFunc is told how many entries have been processed out of total.
type ProgressFunc func(done, total int)

// Import upserts every entry of seed. Questions are normalized into keys.
// Entries whose stored answer and flag already match are left untouched, and
// entries without a usable question or answer are skipped.
func (s *Store) Import(ctx context.Context, seed *SeedFile, progress ProgressFunc) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{}
	total := len(seed.Entries)

	for i, e := range seed.Entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := textnorm.MatchingKey(e.Question)
		switch {
		case key == "":
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: empty question", i+1))
		case e.Answer == "":
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d (%s): empty answer", i+1, key))
		default:
			current, err := s.repo.FindExact(ctx, key)
			if err == nil && current.Answer == e.Answer && current.Verified == e.IsVerified() {
				result.Unchanged++
				break
			}
			if _, err := s.Save(ctx, key, e.Question, e.Answer, e.IsVerified()); err != nil {
				return result, fmt.Errorf("import %q: %w", key, err)
			}
			result.Imported++
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	result.Duration = time.Since(start)
	s.logger.Info().
		Int("imported", result.Imported).
		Int("unchanged", result.Unchanged).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Knowledge seed imported")
	return result, nil
}

// ImportFile loads and imports a seed file.
func (s *Store) ImportFile(ctx context.Context, path string, progress ProgressFunc) (*ImportResult, error) {
	seed, err := LoadSeedFile(path)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, seed, progress)
}

// Export returns answered entries as a seed document. With verifiedOnly set,
// learned answers are left out.
func (s *Store) Export(ctx context.Context, verifiedOnly bool) (*SeedFile, error) {
	status := storage.KnowledgeStatusAll
	if verifiedOnly {
		status = storage.KnowledgeStatusVerified
	}
	entries, err := s.repo.List(ctx, storage.KnowledgeFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("export knowledge: %w", err)
	}

	seed := &SeedFile{}
	for _, e := range entries {
		if e.IsPlaceholder() {
			continue
		}
		verified := e.Verified
		seed.Entries = append(seed.Entries, SeedEntry{
			Question: e.DisplayQuestion,
			Answer:   e.Answer,
			Verified: &verified,
		})
	}
	return seed, nil
}
