package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
)

// ScenarioLister lists scenario files below a root.
type ScenarioLister interface {
	List(ctx context.Context, extensions []string) ([]string, error)
}

// MapperResolver picks the mapper for a scenario file path.
type MapperResolver func(path string) (scenario.Mapper, error)

// FileReport is the check result for one scenario file.
type FileReport struct {
	File    string `json:"file"`
	Entries int    `json:"entries"`
	// MissingBodyFiles lists body file references that do not resolve.
	MissingBodyFiles []string `json:"missing_body_files,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// CheckReport summarises a scenario tree.
type CheckReport struct {
	Files  []FileReport `json:"files"`
	Failed int          `json:"failed"`
}

// CheckScenariosUseCase decodes every scenario file below the root and
// verifies that referenced body files exist.
type CheckScenariosUseCase struct {
	lister     ScenarioLister
	loader     scenario.Loader
	resolve    MapperResolver
	extensions []string
	logger     ports.Logger
}

// NewCheckScenariosUseCase creates a new use case checking files with the
// given extensions.
func NewCheckScenariosUseCase(lister ScenarioLister, loader scenario.Loader, resolve MapperResolver, extensions []string, logger ports.Logger) *CheckScenariosUseCase {
	return &CheckScenariosUseCase{
		lister:     lister,
		loader:     loader,
		resolve:    resolve,
		extensions: extensions,
		logger:     logger,
	}
}

// Execute checks every file. Per-file problems are reported, not returned.
func (uc *CheckScenariosUseCase) Execute(ctx context.Context) (CheckReport, error) {
	files, err := uc.lister.List(ctx, uc.extensions)
	if err != nil {
		return CheckReport{}, fmt.Errorf("failed to list scenarios: %w", err)
	}

	report := CheckReport{Files: make([]FileReport, 0, len(files))}
	for _, file := range files {
		fr := uc.checkFile(ctx, file)
		if fr.Error != "" || len(fr.MissingBodyFiles) > 0 {
			report.Failed++
			uc.logger.Warn("invalid scenario file", "file", file, "error", fr.Error, "missing_body_files", fr.MissingBodyFiles)
		} else {
			uc.logger.Debug("scenario file ok", "file", file, "entries", fr.Entries)
		}
		report.Files = append(report.Files, fr)
	}

	uc.logger.Info("scenario files checked", "files", len(files), "failed", report.Failed)
	return report, nil
}

func (uc *CheckScenariosUseCase) checkFile(ctx context.Context, file string) FileReport {
	fr := FileReport{File: file}
	mapper, err := uc.resolve(file)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	matchers, err := services.NewFileSource(uc.loader, mapper, nil).Matchers(ctx, file)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	fr.Entries = len(matchers)

	for _, m := range matchers {
		if m.Response == nil || m.Response.BodyFile == nil {
			continue
		}
		bodyPath := services.BodyFilePath(file, *m.Response.BodyFile)
		rc, err := uc.loader.Load(ctx, bodyPath)
		if err != nil {
			fr.MissingBodyFiles = append(fr.MissingBodyFiles, bodyPath)
			continue
		}
		rc.Close()
	}
	return fr
}
