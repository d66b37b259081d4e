package service

import (
	"github.com/Amine-Ecssr/event-management-system-sub010/pkg/models"
)

// templateGraph is an in-memory snapshot of the template catalog and its
// prerequisite edges, bulk-loaded once per operation. Graph walks over it
// are pure and synchronous; the snapshot is never cached across calls since
// the catalog may change between them.
type templateGraph struct {
	templates   map[int64]models.RequirementTemplate
	departments map[int64]models.Department
	prereqs     map[int64][]int64 // templateID -> prerequisite template IDs, declaration order
}

func (s *TaskflowService) loadTemplateGraph() (*templateGraph, error) {
	templates, err := s.store.ListTemplates()
	if err != nil {
		return nil, err
	}
	edges, err := s.store.ListPrerequisites()
	if err != nil {
		return nil, err
	}
	departments, err := s.store.ListDepartments()
	if err != nil {
		return nil, err
	}
	g := &templateGraph{
		templates:   make(map[int64]models.RequirementTemplate, len(templates)),
		departments: make(map[int64]models.Department, len(departments)),
		prereqs:     make(map[int64][]int64),
	}
	for _, t := range templates {
		g.templates[t.ID] = t
	}
	for _, d := range departments {
		g.departments[d.ID] = d
	}
	for _, e := range edges {
		g.prereqs[e.TemplateID] = append(g.prereqs[e.TemplateID], e.PrerequisiteTemplateID)
	}
	return g, nil
}

// canReach reports whether targetID is reachable from fromID along
// prerequisite edges. The visited set is local to one validation; the graph
// may have changed by the next call.
func (g *templateGraph) canReach(fromID, targetID int64, visited map[int64]struct{}) bool {
	if fromID == targetID {
		return true
	}
	visited[fromID] = struct{}{}
	for _, next := range g.prereqs[fromID] {
		if _, seen := visited[next]; seen {
			continue
		}
		if g.canReach(next, targetID, visited) {
			return true
		}
	}
	return false
}

// resolveChain collects the transitive prerequisite closure of a template.
// Each direct prerequisite is appended before its own ancestors, and the
// shared seen set deduplicates across overlapping ancestries.
func (g *templateGraph) resolveChain(templateID int64, seen map[int64]struct{}) []models.RequirementTemplate {
	var chain []models.RequirementTemplate
	for _, pid := range g.prereqs[templateID] {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		if t, ok := g.templates[pid]; ok {
			chain = append(chain, t)
		}
		chain = append(chain, g.resolveChain(pid, seen)...)
	}
	return chain
}

// ValidateNoCycle reports whether a new prerequisite edge from templateID to
// prerequisiteTemplateID keeps the template graph acyclic. It returns false
// when the prerequisite can already reach the template along existing edges
// (the new edge would close a cycle); a self-referential edge is rejected by
// the same check.
func (s *TaskflowService) ValidateNoCycle(templateID, prerequisiteTemplateID int64) (bool, error) {
	g, err := s.loadTemplateGraph()
	if err != nil {
		return false, err
	}
	if g.canReach(prerequisiteTemplateID, templateID, make(map[int64]struct{})) {
		s.logger.Infof("Rejected prerequisite edge %d -> %d: would create a cycle", templateID, prerequisiteTemplateID)
		return false, nil
	}
	return true, nil
}

// AddPrerequisite validates and records a new prerequisite edge. Acyclicity
// is enforced here, at edge creation, and never re-checked later.
func (s *TaskflowService) AddPrerequisite(templateID, prerequisiteTemplateID int64) (bool, error) {
	ok, err := s.ValidateNoCycle(templateID, prerequisiteTemplateID)
	if err != nil || !ok {
		return false, err
	}
	if _, err := s.store.SavePrerequisite(models.Prerequisite{
		TemplateID:             templateID,
		PrerequisiteTemplateID: prerequisiteTemplateID,
	}); err != nil {
		return false, err
	}
	s.logger.Infof("Added prerequisite edge %d -> %d", templateID, prerequisiteTemplateID)
	return true, nil
}

// ResolvePrerequisiteChain returns the deduplicated transitive closure of a
// template's prerequisites, in a valid topological return order.
func (s *TaskflowService) ResolvePrerequisiteChain(templateID int64) ([]models.RequirementTemplate, error) {
	g, err := s.loadTemplateGraph()
	if err != nil {
		return nil, err
	}
	return g.resolveChain(templateID, make(map[int64]struct{})), nil
}

// WorkflowChain is one root-to-leaf prerequisite lineage, built for
// selection-time display, plus the distinct departments it spans.
type WorkflowChain struct {
	Templates   []models.RequirementTemplate `json:"templates"`
	Departments []models.Department          `json:"departments"`
}

// RequiredTemplates is the selection preview: what the admin picked, what
// their picks transitively require, and the chains spanning both.
type RequiredTemplates struct {
	SelectedTemplates     []models.RequirementTemplate `json:"selected_templates"`
	RequiredPrerequisites []models.RequirementTemplate `json:"required_prerequisites"`
	WorkflowChains        []WorkflowChain              `json:"workflow_chains"`
	AllTemplates          []models.RequirementTemplate `json:"all_templates"`
}

// GetRequiredTaskTemplates resolves the full set of templates a selection
// pulls in. A single seen set is shared across all selected roots, so a
// prerequisite shared by several selections (or itself selected) appears
// only once, and never in both the selected and required lists.
func (s *TaskflowService) GetRequiredTaskTemplates(selectedIDs []int64) (RequiredTemplates, error) {
	g, err := s.loadTemplateGraph()
	if err != nil {
		return RequiredTemplates{}, err
	}

	seen := make(map[int64]struct{}, len(selectedIDs))
	var result RequiredTemplates
	for _, id := range selectedIDs {
		t, ok := g.templates[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result.SelectedTemplates = append(result.SelectedTemplates, t)
	}
	for _, t := range result.SelectedTemplates {
		result.RequiredPrerequisites = append(result.RequiredPrerequisites, g.resolveChain(t.ID, seen)...)
	}

	result.WorkflowChains = g.buildChains(result.SelectedTemplates)

	result.AllTemplates = append(result.AllTemplates, result.SelectedTemplates...)
	result.AllTemplates = append(result.AllTemplates, result.RequiredPrerequisites...)
	return result, nil
}

// buildChains produces one chain per selected template that has at least one
// prerequisite: resolved ancestors reversed to root-first order, followed by
// the selected template. Templates consumed by an earlier chain in the same
// call are skipped so shared ancestries are not duplicated across chains.
func (g *templateGraph) buildChains(selected []models.RequirementTemplate) []WorkflowChain {
	consumed := make(map[int64]struct{})
	var chains []WorkflowChain
	for _, t := range selected {
		if len(g.prereqs[t.ID]) == 0 {
			continue
		}
		ancestors := g.resolveChain(t.ID, consumed)
		var templates []models.RequirementTemplate
		for i := len(ancestors) - 1; i >= 0; i-- {
			templates = append(templates, ancestors[i])
		}
		if _, ok := consumed[t.ID]; !ok {
			consumed[t.ID] = struct{}{}
			templates = append(templates, t)
		}
		if len(templates) == 0 {
			continue
		}
		chains = append(chains, WorkflowChain{
			Templates:   templates,
			Departments: g.departmentsOf(templates),
		})
	}
	return chains
}

func (g *templateGraph) departmentsOf(templates []models.RequirementTemplate) []models.Department {
	var out []models.Department
	added := make(map[int64]struct{})
	for _, t := range templates {
		if _, ok := added[t.DepartmentID]; ok {
			continue
		}
		added[t.DepartmentID] = struct{}{}
		if d, ok := g.departments[t.DepartmentID]; ok {
			out = append(out, d)
		}
	}
	return out
}
