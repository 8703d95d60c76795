package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
	"github.com/sophialabs/httpmocker/internal/infrastructure/services"
)

// ConvertScenariosUseCase re-encodes a scenario file in another format.
type ConvertScenariosUseCase struct {
	loader  scenario.Loader
	writer  ports.FileWriter
	resolve MapperResolver
	logger  ports.Logger
}

// NewConvertScenariosUseCase creates a new use case.
func NewConvertScenariosUseCase(loader scenario.Loader, writer ports.FileWriter, resolve MapperResolver, logger ports.Logger) *ConvertScenariosUseCase {
	return &ConvertScenariosUseCase{
		loader:  loader,
		writer:  writer,
		resolve: resolve,
		logger:  logger,
	}
}

// Execute reads src and writes its entries to dst. The formats are taken
// from the file extensions. Body file references are kept as is, so dst
// should sit in the same folder as src.
func (uc *ConvertScenariosUseCase) Execute(ctx context.Context, src, dst string) (int, error) {
	from, err := uc.resolve(src)
	if err != nil {
		return 0, err
	}
	to, err := uc.resolve(dst)
	if err != nil {
		return 0, err
	}

	matchers, err := services.NewFileSource(uc.loader, from, nil).Matchers(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", src, err)
	}
	data, err := to.Marshal(matchers)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", dst, err)
	}
	if err := uc.writer.WriteFile(ctx, dst, data); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	uc.logger.Info("scenario file converted", "from", src, "to", dst, "entries", len(matchers))
	return len(matchers), nil
}
