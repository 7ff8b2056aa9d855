package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
)

var (
	// ErrVariantNotRegistered is returned when a draw mode has no registered pipeline.
	ErrVariantNotRegistered = errors.New("variant not registered")

	// ErrVariantAlreadyRegistered is returned when a second pipeline is registered for a variant.
	ErrVariantAlreadyRegistered = errors.New("variant already registered")
)

// DrawRequest describes one draw before a pipeline is chosen.
type DrawRequest struct {
	// Label names the draw in errors and logs.
	Label string
	// Mode is the frame's draw mode.
	Mode light.Mode
	// Providers holds the bind group providers of the draw keyed by group index.
	Providers map[int]bind_group_provider.BindGroupProvider
}

// BoundGroup is a provider placed at its bind group index.
type BoundGroup struct {
	Index    int
	Provider bind_group_provider.BindGroupProvider
}

// DrawPlan is a checked draw: the pipeline and the bind groups to set, ordered by group index.
type DrawPlan struct {
	Pipeline   Pipeline
	BindGroups []BoundGroup
}

type selector struct {
	mu             sync.RWMutex
	pipelines      map[Variant]Pipeline
	logger         *slog.Logger
	validateShader bool
}

// Selector picks the forward pipeline for a draw mode and refuses draws whose bindings do not
// match the pipeline. Safe for concurrent use.
type Selector interface {
	// Register adds a pipeline for its variant. The pipeline's shaders must declare exactly the
	// variant's ExpectedLayout.
	//
	// Parameters:
	//   - p: the pipeline to register
	//
	// Returns:
	//   - error: a *LayoutError if the shaders do not match the variant, ErrVariantAlreadyRegistered
	//     on a duplicate, or the shader validation error when validation is enabled
	Register(p Pipeline) error

	// Select returns the pipeline drawing a mode.
	//
	// Parameters:
	//   - mode: the draw mode
	//
	// Returns:
	//   - Pipeline: the registered pipeline
	//   - error: ErrVariantNotRegistered if no pipeline draws the mode
	Select(mode light.Mode) (Pipeline, error)

	// Plan resolves the pipeline for a draw and checks the providers fill exactly the
	// pipeline's layout.
	//
	// Parameters:
	//   - req: the draw request
	//
	// Returns:
	//   - DrawPlan: the pipeline and its ordered bind groups
	//   - error: ErrVariantNotRegistered or a *LayoutError naming every bad slot
	Plan(req DrawRequest) (DrawPlan, error)

	// Pipelines returns the registered pipelines in variant order.
	//
	// Returns:
	//   - []Pipeline: the registered pipelines
	Pipelines() []Pipeline
}

var _ Selector = &selector{}

// NewSelector creates an empty Selector.
//
// Parameters:
//   - opts: variadic list of SelectorBuilderOption functions
//
// Returns:
//   - Selector: the selector
func NewSelector(opts ...SelectorBuilderOption) Selector {
	s := &selector{
		pipelines: make(map[Variant]Pipeline),
		logger:    common.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewForwardSelector creates a Selector with the builtin pipeline of every variant registered.
//
// Parameters:
//   - pipelineOpts: options applied to each of the builtin pipelines
//   - opts: variadic list of SelectorBuilderOption functions
//
// Returns:
//   - Selector: the selector
//   - error: an error if a builtin pipeline fails to load or register
func NewForwardSelector(pipelineOpts []PipelineBuilderOption, opts ...SelectorBuilderOption) (Selector, error) {
	s := NewSelector(opts...)
	for _, v := range Variants {
		p, err := NewVariantPipeline(v, pipelineOpts...)
		if err != nil {
			return nil, err
		}
		if err := s.Register(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *selector) Register(p Pipeline) error {
	if p == nil {
		return errors.New("register: nil pipeline")
	}
	v := p.Variant()

	if s.validateShader {
		for _, st := range []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment} {
			sh := p.Shader(st)
			if sh == nil {
				continue
			}
			if err := sh.Validate(); err != nil {
				s.logger.Error("pipeline shader rejected", "pipeline", p.PipelineKey(), "err", err)
				return fmt.Errorf("register %s: %w", p.PipelineKey(), err)
			}
		}
	}

	if err := ExpectedLayout(v).Compatible(p.Layout()); err != nil {
		s.logger.Error("pipeline layout rejected", "pipeline", p.PipelineKey(), "variant", v.String(), "err", err)
		return fmt.Errorf("register %s as %s: %w", p.PipelineKey(), v, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pipelines[v]; ok {
		return fmt.Errorf("register %s: %w: %s holds %s", p.PipelineKey(), ErrVariantAlreadyRegistered, existing.PipelineKey(), v)
	}
	s.pipelines[v] = p
	s.logger.Info("pipeline registered", "pipeline", p.PipelineKey(), "variant", v.String())
	return nil
}

func (s *selector) Select(mode light.Mode) (Pipeline, error) {
	v := VariantFor(mode)
	s.mu.RLock()
	p, ok := s.pipelines[v]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariantNotRegistered, v)
	}
	return p, nil
}

func (s *selector) Plan(req DrawRequest) (DrawPlan, error) {
	p, err := s.Select(req.Mode)
	if err != nil {
		return DrawPlan{}, fmt.Errorf("plan %s: %w", req.Label, err)
	}

	layout := p.Layout()
	if err := layout.Compatible(LayoutFromProviders(req.Providers)); err != nil {
		s.logger.Error("draw rejected", "draw", req.Label, "pipeline", p.PipelineKey(), "err", err)
		return DrawPlan{}, fmt.Errorf("plan %s with %s: %w", req.Label, p.PipelineKey(), err)
	}

	groups := layout.Groups()
	plan := DrawPlan{Pipeline: p, BindGroups: make([]BoundGroup, 0, len(groups))}
	for _, g := range groups {
		plan.BindGroups = append(plan.BindGroups, BoundGroup{Index: g, Provider: req.Providers[g]})
	}
	return plan, nil
}

func (s *selector) Pipelines() []Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pipeline, 0, len(s.pipelines))
	for _, v := range Variants {
		if p, ok := s.pipelines[v]; ok {
			out = append(out, p)
		}
	}
	return out
}
