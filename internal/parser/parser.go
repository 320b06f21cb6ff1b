// Package parser reads and writes problem instances.
//
// Two formats are supported. The text format extends the classic FJSP
// benchmark layout with a "Dynamic Events" block; the document format is
// YAML or JSON with the same field names the API uses.
package parser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/me/dfjss/pkg/model"
)

// Parser converts instance files into validated model instances.
type Parser struct {
	logger   *slog.Logger
	oneBased bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithOneBasedMachines makes the text format read and write machine indices
// starting at 1, as in the Brandimarte and Hurink benchmark files.
func WithOneBasedMachines() Option {
	return func(p *Parser) { p.oneBased = true }
}

// New creates a Parser with the given logger.
func New(logger *slog.Logger, opts ...Option) *Parser {
	p := &Parser{logger: logger.With("component", "parser")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format identifies an instance encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatDocument Format = "document"
)

// FormatOf picks the format from a file extension. It returns false for
// extensions that do not hold instances.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".fjs":
		return FormatText, true
	case ".yaml", ".yml", ".json":
		return FormatDocument, true
	}
	return "", false
}

// Parse decodes data in the given format and validates the result.
func (p *Parser) Parse(data []byte, format Format, name string) (*model.Instance, error) {
	var (
		inst *model.Instance
		err  error
	)
	switch format {
	case FormatText:
		inst, err = p.ParseText(data, name)
	case FormatDocument:
		inst, err = p.ParseDocument(data, name)
	default:
		return nil, fmt.Errorf("unknown instance format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if verr := inst.Validate(); verr != nil {
		return nil, fmt.Errorf("%s: %w", name, verr)
	}
	return inst, nil
}

// LoadFile reads and parses one instance file. The instance is named after
// the file unless the document names it.
func (p *Parser) LoadFile(path string) (*model.Instance, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported instance file extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instance: %w", err)
	}
	inst, err := p.Parse(data, format, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	p.logger.Debug("instance loaded", "path", path, "machines", inst.Machines,
		"jobs", len(inst.Jobs), "arrivals", len(inst.Events.Arrivals))
	return inst, nil
}

// LoadDir loads every instance file directly inside dir in lexical order.
// Files with other extensions are skipped.
func (p *Parser) LoadDir(dir string) ([]*model.Instance, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read instance dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatOf(e.Name()); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	instances := make([]*model.Instance, 0, len(paths))
	for _, path := range paths {
		inst, err := p.LoadFile(path)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	p.logger.Info("instances loaded", "dir", dir, "count", len(instances))
	return instances, nil
}

// Load accepts either a file or a directory.
func (p *Parser) Load(path string) ([]*model.Instance, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return p.LoadDir(path)
	}
	inst, err := p.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*model.Instance{inst}, nil
}
