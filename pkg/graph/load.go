package graph

import (
	"context"
	"fmt"
	"os"

	"github.com/albertviilik/pipecat-flows/internal/compiler"
	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
)

// Parse decodes a YAML or JSON flow file and validates it.
func Parse(data []byte) (*Store, error) {
	def, err := compiler.NewParser().Parse(data)
	if err != nil {
		return nil, err
	}
	return FromDefinition(def)
}

// LoadFile reads and validates the flow file at path.
func LoadFile(path string) (*Store, error) {
	return Load(context.Background(), &FileLoader{Path: path})
}

// Load reads a flow from any loader and validates it.
func Load(ctx context.Context, loader ports.FlowLoader) (*Store, error) {
	def, err := loader.LoadFlow(ctx)
	if err != nil {
		return nil, err
	}
	return FromDefinition(def)
}

// FileLoader reads a flow definition from a YAML or JSON file.
type FileLoader struct {
	Path string
}

// LoadFlow implements ports.FlowLoader.
func (l *FileLoader) LoadFlow(_ context.Context) (domain.FlowDefinition, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return domain.FlowDefinition{}, fmt.Errorf("read flow file: %w", err)
	}
	def, err := compiler.NewParser().Parse(data)
	if err != nil {
		return def, fmt.Errorf("%s: %w", l.Path, err)
	}
	return def, nil
}

// BytesLoader serves a flow definition from memory, e.g. an embedded file.
type BytesLoader []byte

// LoadFlow implements ports.FlowLoader.
func (b BytesLoader) LoadFlow(_ context.Context) (domain.FlowDefinition, error) {
	return compiler.NewParser().Parse(b)
}
