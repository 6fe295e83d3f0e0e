package main

import (
	"context"
	"fmt"

	"codearena/internal/common/db"
	"codearena/internal/judge/literal"
	"codearena/internal/judge/model"
	problemRepo "codearena/internal/problem/repository"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

type seedTestCase struct {
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	Explanation string `yaml:"explanation"`
}

type seedProblem struct {
	Slug        string            `yaml:"slug"`
	Title       string            `yaml:"title"`
	DriverCode  map[string]string `yaml:"driverCode"`
	StarterCode map[string]string `yaml:"starterCode"`
	TestCases   []seedTestCase    `yaml:"testCases"`
	Settings    struct {
		TimeLimitMs   int64 `yaml:"timeLimitMs"`
		MemoryLimitMB int64 `yaml:"memoryLimitMb"`
	} `yaml:"settings"`
}

type seedFile struct {
	Problems []seedProblem `yaml:"problems"`
}

// loadSeedFile reads problems from YAML and checks that every test case input
// decodes, so a broken catalogue is rejected before it reaches the store.
func loadSeedFile(path string) ([]*model.Problem, error) {
	var file seedFile
	if err := loadYAML(path, &file); err != nil {
		return nil, err
	}
	problems := make([]*model.Problem, 0, len(file.Problems))
	seen := make(map[string]bool, len(file.Problems))
	for i, sp := range file.Problems {
		if sp.Slug == "" {
			return nil, fmt.Errorf("problem %d: slug is required", i+1)
		}
		if seen[sp.Slug] {
			return nil, fmt.Errorf("problem %s: duplicate slug", sp.Slug)
		}
		seen[sp.Slug] = true

		p := &model.Problem{
			Slug:        sp.Slug,
			Title:       sp.Title,
			DriverCode:  sp.DriverCode,
			StarterCode: sp.StarterCode,
			TestCases:   make([]model.TestCase, 0, len(sp.TestCases)),
			Settings: model.Settings{
				TimeLimitMs:   sp.Settings.TimeLimitMs,
				MemoryLimitMB: sp.Settings.MemoryLimitMB,
			},
		}
		for _, tc := range sp.TestCases {
			p.TestCases = append(p.TestCases, model.TestCase{Input: tc.Input, Output: tc.Output, Explanation: tc.Explanation})
		}
		if _, err := literal.EncodeInputs(p.TestCases); err != nil {
			return nil, fmt.Errorf("problem %s: %w", sp.Slug, err)
		}
		problems = append(problems, p)
	}
	return problems, nil
}

// seedProblems upserts all problems in one transaction and drops their cache
// entries once it has committed.
func seedProblems(ctx context.Context, database db.Database, repo problemRepo.ProblemRepository, problems []*model.Problem) error {
	slugs := make([]string, 0, len(problems))
	err := database.Transaction(ctx, func(tx db.Transaction) error {
		for _, p := range problems {
			if err := repo.Upsert(ctx, tx, p); err != nil {
				return fmt.Errorf("upsert problem %s failed: %w", p.Slug, err)
			}
			slugs = append(slugs, p.Slug)
			logger.Info(ctx, "problem seeded", zap.String("slug", p.Slug), zap.Int("test_cases", len(p.TestCases)))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := repo.Invalidate(ctx, slugs...); err != nil {
		logger.Warn(ctx, "invalidate seeded problems failed", zap.Error(err))
	}
	return nil
}
