// Package loam loads flow graphs from a directory of markdown documents,
// one node per document.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/albertviilik/pipecat-flows/pkg/domain"
	"github.com/albertviilik/pipecat-flows/pkg/ports"
	"github.com/aretw0/loam"
)

// StartNodeID is the initial node when no document is marked initial.
const StartNodeID = "start"

// Loader adapts a Loam repository to ports.FlowLoader.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
}

var _ ports.FlowLoader = (*Loader)(nil)

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open reads the flow documents under dir. The repository is opened read
// only and in strict mode, so numbers decode as json.Number.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[NodeMetadata](repo)), nil
}

// LoadFlow implements ports.FlowLoader.
func (l *Loader) LoadFlow(ctx context.Context) (domain.FlowDefinition, error) {
	refs, err := l.list(ctx)
	if err != nil {
		return domain.FlowDefinition{}, err
	}

	var def domain.FlowDefinition
	for _, ref := range refs {
		id := ref.id
		doc, err := l.Repo.Get(ctx, ref.path)
		if err != nil {
			return domain.FlowDefinition{}, fmt.Errorf("loam get failed for %s: %w", id, err)
		}
		if doc.Data.Library {
			continue
		}

		node, err := l.buildNode(ctx, id, doc.Data, doc.Content)
		if err != nil {
			return domain.FlowDefinition{}, err
		}
		if doc.Data.Initial {
			if def.Initial != "" {
				return domain.FlowDefinition{}, fmt.Errorf("nodes %q and %q are both marked initial", def.Initial, id)
			}
			def.Initial = id
		}
		def.Nodes = append(def.Nodes, node)
	}

	if def.Initial == "" {
		def.Initial = StartNodeID
	}
	return def, nil
}

func (l *Loader) buildNode(ctx context.Context, id string, meta NodeMetadata, content string) (domain.Node, error) {
	node := domain.Node{
		ID:           id,
		SystemPrompt: strings.TrimSpace(content),
		PreActions:   meta.PreActions,
		PostActions:  meta.PostActions,
	}

	actions, err := l.resolveActions(ctx, meta, nil)
	if err != nil {
		return domain.Node{}, fmt.Errorf("error resolving actions for %s: %w", id, err)
	}
	node.Actions = actions
	return node, nil
}

// resolveActions merges included libraries, in order, with the node's own
// actions. Libraries may include other libraries.
func (l *Loader) resolveActions(ctx context.Context, meta NodeMetadata, visited map[string]bool) ([]domain.Action, error) {
	if visited == nil {
		visited = make(map[string]bool)
	}

	actionMap := make(map[string]domain.Action)
	var names []string
	add := func(a domain.Action) {
		if _, exists := actionMap[a.Name]; !exists {
			names = append(names, a.Name)
		}
		actionMap[a.Name] = a
	}

	for _, ref := range meta.Include {
		refID := trimExtension(ref)
		if visited[refID] {
			return nil, fmt.Errorf("cycle detected in action includes: %s", refID)
		}
		visited[refID] = true

		doc, err := l.Repo.Get(ctx, refID)
		if err != nil {
			return nil, fmt.Errorf("failed to load action library '%s': %w", refID, err)
		}
		included, err := l.resolveActions(ctx, doc.Data, visited)
		delete(visited, refID)
		if err != nil {
			return nil, err
		}
		for _, a := range included {
			add(a)
		}
	}

	for _, la := range meta.Actions {
		a, err := convertAction(la)
		if err != nil {
			return nil, err
		}
		add(a)
	}

	result := make([]domain.Action, 0, len(names))
	for _, name := range names {
		result = append(result, actionMap[name])
	}
	return result, nil
}

func convertAction(la LoaderAction) (domain.Action, error) {
	if la.Name == "" {
		return domain.Action{}, fmt.Errorf("action missing name")
	}
	target := la.Target
	if target == "" {
		target = la.To
	}

	kind := domain.ActionKind(la.Kind)
	if kind == "" {
		kind = domain.KindNode
		if target != "" {
			kind = domain.KindEdge
		}
	}

	return domain.Action{
		Name:        la.Name,
		Kind:        kind,
		Description: la.Description,
		Parameters:  la.Parameters,
		Target:      trimExtension(target),
	}, nil
}

// ListNodes lists the normalized IDs of every document in the repository.
func (l *Loader) ListNodes(ctx context.Context) ([]string, error) {
	refs, err := l.list(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.id
	}
	return ids, nil
}

type docRef struct {
	id   string
	path string
}

func (l *Loader) list(ctx context.Context) ([]docRef, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	refs := make([]docRef, 0, len(docs))

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		refs = append(refs, docRef{id: id, path: doc.ID})
	}
	return refs, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
