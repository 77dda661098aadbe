package services

import (
	"provisioner/pkg/plan"
)

type StepView struct {
	Name     string `json:"name"`
	Announce string `json:"announce,omitempty"`
	Command  string `json:"command"`
}

type PlanView struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Default     bool       `json:"default"`
	Steps       []StepView `json:"steps"`
}

type PlanServiceMethods interface {
	ListPlans() []PlanView
	GetPlan(name string) (*PlanView, error)
}

type planService struct {
	registry *plan.Registry
}

func NewPlanService(registry *plan.Registry) PlanServiceMethods {
	if registry == nil {
		registry = plan.Catalogue()
	}
	return &planService{registry: registry}
}

func (s *planService) ListPlans() []PlanView {
	plans := s.registry.All()
	views := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, newPlanView(p))
	}
	return views
}

func (s *planService) GetPlan(name string) (*PlanView, error) {
	p, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	view := newPlanView(p)
	return &view, nil
}

func newPlanView(p plan.Plan) PlanView {
	view := PlanView{
		Name:        p.Name,
		Description: p.Description,
		Default:     p.Name == plan.DefaultPlan,
		Steps:       make([]StepView, 0, len(p.Steps)),
	}
	for _, step := range p.Steps {
		view.Steps = append(view.Steps, StepView{
			Name:     step.Name,
			Announce: step.Announce,
			Command:  step.CommandLine(),
		})
	}
	return view
}
