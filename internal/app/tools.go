package app

import (
	"context"
	"fmt"

	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/codec"
	"github.com/sophialabs/httpmocker/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/httpmocker/internal/infrastructure/usecases"
)

// scenarioExtensions are the file extensions read as scenario files.
var scenarioExtensions = []string{".json", ".yaml", ".yml", ".xml"}

// Convert re-encodes the scenario file src as dst, both relative to rootDir.
func Convert(ctx context.Context, rootDir, src, dst, logLevel string) (int, error) {
	loader, err := filesystem.NewLoader(rootDir)
	if err != nil {
		return 0, err
	}
	writer, err := filesystem.NewWriter(rootDir)
	if err != nil {
		return 0, err
	}
	uc := usecases.NewConvertScenariosUseCase(loader, writer, codec.ForPath, newLogger(logLevel))
	n, err := uc.Execute(ctx, src, dst)
	if err != nil {
		return 0, fmt.Errorf("convert %s to %s: %w", src, dst, err)
	}
	return n, nil
}

// Check decodes every scenario file under rootDir and verifies that the
// body files they reference exist.
func Check(ctx context.Context, rootDir, logLevel string) (usecases.CheckReport, error) {
	loader, err := filesystem.NewLoader(rootDir)
	if err != nil {
		return usecases.CheckReport{}, err
	}
	uc := usecases.NewCheckScenariosUseCase(loader, loader, codec.ForPath, scenarioExtensions, newLogger(logLevel))
	return uc.Execute(ctx)
}
